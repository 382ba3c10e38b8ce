package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

// InsertCheckIn creates the day's record unless one already exists for
// (user_id, date). The unique index makes the insert-or-ignore atomic, so
// concurrent callers observe exactly one created=true.
func (r *AttendanceRepo) InsertCheckIn(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, fmt.Errorf("insert attendance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *AttendanceRepo) FindByUserDate(ctx context.Context, userID uint, date string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &rec, nil
}

// MarkCheckOut sets the checkout columns only while check_out_time is still
// NULL. It reports false when another request got there first.
func (r *AttendanceRepo) MarkCheckOut(ctx context.Context, id uint, at time.Time, hours float64, location string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ? AND check_in_time IS NOT NULL AND check_out_time IS NULL", id).
		Updates(map[string]any{
			"check_out_time":     at,
			"total_hours":        hours,
			"check_out_location": location,
		})
	if res.Error != nil {
		return false, fmt.Errorf("update attendance checkout: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *AttendanceRepo) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("date = ?", date).
		Order("check_in_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list attendance for %s: %w", date, err)
	}
	return records, nil
}

// ListRange returns records with from <= date <= to, oldest first.
func (r *AttendanceRepo) ListRange(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, user_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list attendance range: %w", err)
	}
	return records, nil
}

// ListOpenBefore returns unflagged records from days before date that were
// checked in but never checked out.
func (r *AttendanceRepo) ListOpenBefore(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("date < ? AND check_in_time IS NOT NULL AND check_out_time IS NULL AND missed_checkout_flagged = ?", date, false).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list open attendance: %w", err)
	}
	return records, nil
}

// FlagMissedCheckout marks the record and inserts note in one transaction.
// It reports false, writing nothing, when the record is already flagged.
// A failed insert rolls the flag back so the next sweep retries.
func (r *AttendanceRepo) FlagMissedCheckout(ctx context.Context, id uint, note *models.Notification) (bool, error) {
	flagged := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AttendanceRecord{}).
			Where("id = ? AND missed_checkout_flagged = ?", id, false).
			Update("missed_checkout_flagged", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		flagged = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("flag missed checkout: %w", err)
	}
	return flagged, nil
}
