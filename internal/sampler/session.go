package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

type AttendanceClient interface {
	Attendance(ctx context.Context, action services.AttendanceAction, coordinates string, battery *int) (*models.AttendanceRecord, error)
}

// Session ties periodic sampling to the attendance day: sampling runs only
// between a successful check-in and check-out.
type Session struct {
	api      AttendanceClient
	sampler  *Sampler
	interval time.Duration
}

func NewSession(api AttendanceClient, sampler *Sampler, interval time.Duration) *Session {
	return &Session{api: api, sampler: sampler, interval: interval}
}

func (s *Session) CheckIn(ctx context.Context) (*models.AttendanceRecord, error) {
	coordinates := s.coordinates(ctx)
	battery := s.sampler.BatteryLevel()

	rec, err := s.api.Attendance(ctx, services.ActionCheckIn, coordinates, &battery)
	if err != nil {
		return nil, err
	}
	s.sampler.Start(s.interval)
	return rec, nil
}

// Resume restarts sampling for a day that is already checked in, e.g. after
// an agent restart.
func (s *Session) Resume() {
	s.sampler.Start(s.interval)
}

// CheckOut stops sampling before the checkout is sent.
func (s *Session) CheckOut(ctx context.Context) (*models.AttendanceRecord, error) {
	s.sampler.Stop()
	return s.api.Attendance(ctx, services.ActionCheckOut, s.coordinates(ctx), nil)
}

// Close ends the session without checking out.
func (s *Session) Close() {
	s.sampler.Stop()
}

// coordinates is best effort; attendance is still recorded without a fix.
func (s *Session) coordinates(ctx context.Context) string {
	pos, err := s.sampler.Locate(ctx)
	if err != nil {
		s.sampler.lg.Printf("no position for attendance: %v", err)
		return ""
	}
	return fmt.Sprintf("%.6f,%.6f", pos.Latitude, pos.Longitude)
}
