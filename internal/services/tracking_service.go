package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
)

type LocationInput struct {
	Latitude       float64
	Longitude      float64
	Speed          *float64
	Battery        *int
	IsMockLocation bool
}

// LocationView is one map marker as served by the snapshot endpoints.
type LocationView struct {
	UserID         uint            `json:"userId"`
	Lat            float64         `json:"lat"`
	Lng            float64         `json:"lng"`
	EmployeeName   string          `json:"employeeName"`
	LastUpdate     time.Time       `json:"lastUpdate"`
	Status         models.Presence `json:"status"`
	Battery        int             `json:"battery"`
	IsMockLocation bool            `json:"isMockLocation"`
}

type TrackingOptions struct {
	Location    *time.Location
	IdleTimeout time.Duration
}

type TrackingService struct {
	samples    *repos.TrackingRepo
	attendance *repos.AttendanceRepo
	users      *repos.UserRepo
	notes      *NotificationService
	pub        Publisher
	opts       TrackingOptions
	lg         *log.Logger
	now        func() time.Time
}

func NewTrackingService(samples *repos.TrackingRepo, attendance *repos.AttendanceRepo, users *repos.UserRepo,
	notes *NotificationService, pub Publisher, opts TrackingOptions, lg *log.Logger) *TrackingService {
	if pub == nil {
		pub = nopPublisher{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &TrackingService{
		samples:    samples,
		attendance: attendance,
		users:      users,
		notes:      notes,
		pub:        pub,
		opts:       opts,
		lg:         lg,
		now:        time.Now,
	}
}

// Ingest stores the sample unconditionally. A sample flagged as mock raises
// exactly one FAKE_GPS notification before Ingest returns; the sample is kept
// for audit either way.
func (s *TrackingService) Ingest(ctx context.Context, userID uint, in LocationInput) (*models.TrackingSample, error) {
	sample, err := s.sampleFrom(userID, in)
	if err != nil {
		return nil, err
	}

	if err := s.samples.Create(ctx, &sample); err != nil {
		return nil, err
	}

	if sample.IsMockLocation {
		msg := fmt.Sprintf("Fake GPS detected for %s at %.6f,%.6f", s.userName(ctx, userID), sample.Latitude, sample.Longitude)
		if _, err := s.notes.Create(ctx, &userID, models.NotificationFakeGPS, msg); err != nil {
			s.lg.Printf("write FAKE_GPS notification for user %d: %v", userID, err)
		}
	}

	s.pub.Publish(EventLocationUpdated, userID, sample)
	return &sample, nil
}

// Relay forwards a live reading to viewers without persisting it.
func (s *TrackingService) Relay(userID uint, in LocationInput) (*models.TrackingSample, error) {
	sample, err := s.sampleFrom(userID, in)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(EventLocationUpdated, userID, sample)
	return &sample, nil
}

func (s *TrackingService) sampleFrom(userID uint, in LocationInput) (models.TrackingSample, error) {
	if err := validateLatLng(in.Latitude, in.Longitude); err != nil {
		return models.TrackingSample{}, err
	}

	battery := 100
	if in.Battery != nil {
		battery = min(max(*in.Battery, 0), 100)
	}

	return models.TrackingSample{
		UserID:         userID,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Speed:          in.Speed,
		Battery:        battery,
		IsMockLocation: in.IsMockLocation,
		Timestamp:      s.now().UTC(),
	}, nil
}

// LatestPerUser is the map snapshot: newest sample per user over the
// trailing window.
func (s *TrackingService) LatestPerUser(ctx context.Context, window time.Duration) ([]LocationView, error) {
	now := s.now()
	rows, err := s.samples.LatestPerUser(ctx, now.Add(-window).UTC())
	if err != nil {
		return nil, err
	}
	return s.views(ctx, now, rows)
}

func (s *TrackingService) LatestForUser(ctx context.Context, userID uint) (*LocationView, error) {
	row, err := s.samples.LatestForUser(ctx, userID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	views, err := s.views(ctx, s.now(), []models.TrackingSample{*row})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *TrackingService) History(ctx context.Context, userID uint, from, to time.Time) ([]models.TrackingSample, error) {
	return s.samples.History(ctx, userID, from.UTC(), to.UTC())
}

func (s *TrackingService) views(ctx context.Context, now time.Time, rows []models.TrackingSample) ([]LocationView, error) {
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}

	names, err := s.users.NamesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	checkedIn, err := s.checkedInToday(ctx, now)
	if err != nil {
		return nil, err
	}

	out := make([]LocationView, 0, len(rows))
	for _, r := range rows {
		out = append(out, LocationView{
			UserID:         r.UserID,
			Lat:            r.Latitude,
			Lng:            r.Longitude,
			EmployeeName:   names[r.UserID],
			LastUpdate:     r.Timestamp,
			Status:         models.PresenceOf(r.Timestamp, now, s.opts.IdleTimeout, checkedIn[r.UserID]),
			Battery:        r.Battery,
			IsMockLocation: r.IsMockLocation,
		})
	}
	return out, nil
}

func (s *TrackingService) checkedInToday(ctx context.Context, now time.Time) (map[uint]bool, error) {
	records, err := s.attendance.ListByDate(ctx, now.In(s.opts.Location).Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(records))
	for i := range records {
		out[records[i].UserID] = records[i].Status() == models.StatusCheckedIn
	}
	return out, nil
}

func (s *TrackingService) userName(ctx context.Context, userID uint) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return u.Name
}
