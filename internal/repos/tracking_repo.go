package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"gorm.io/gorm"
)

type TrackingRepo struct {
	db *gorm.DB
}

func NewTrackingRepo(db *gorm.DB) *TrackingRepo {
	return &TrackingRepo{db: db}
}

// Create appends a sample. Samples are never updated or deleted.
func (r *TrackingRepo) Create(ctx context.Context, sample *models.TrackingSample) error {
	if err := r.db.WithContext(ctx).Create(sample).Error; err != nil {
		return fmt.Errorf("insert tracking sample: %w", err)
	}
	return nil
}

// LatestPerUser returns the newest sample per user among samples recorded at
// or after since. Timestamp ties are broken by the highest id.
func (r *TrackingRepo) LatestPerUser(ctx context.Context, since time.Time) ([]models.TrackingSample, error) {
	latest := r.db.WithContext(ctx).
		Model(&models.TrackingSample{}).
		Select("user_id, MAX(recorded_at) AS max_recorded_at").
		Where("recorded_at >= ?", since).
		Group("user_id")

	var rows []models.TrackingSample
	err := r.db.WithContext(ctx).
		Table("tracking AS t").
		Select("t.*").
		Joins("JOIN (?) AS latest ON latest.user_id = t.user_id AND latest.max_recorded_at = t.recorded_at", latest).
		Order("t.user_id ASC, t.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest tracking per user: %w", err)
	}

	out := make([]models.TrackingSample, 0, len(rows))
	for i, row := range rows {
		if i > 0 && rows[i-1].UserID == row.UserID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *TrackingRepo) LatestForUser(ctx context.Context, userID uint) (*models.TrackingSample, error) {
	var sample models.TrackingSample
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at DESC, id DESC").
		First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest tracking for user %d: %w", userID, err)
	}
	return &sample, nil
}

// History returns a user's samples in [from, to], oldest first.
func (r *TrackingRepo) History(ctx context.Context, userID uint, from, to time.Time) ([]models.TrackingSample, error) {
	var rows []models.TrackingSample
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND recorded_at >= ? AND recorded_at <= ?", userID, from, to).
		Order("recorded_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tracking history for user %d: %w", userID, err)
	}
	return rows, nil
}
