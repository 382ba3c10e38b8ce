package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
)

type AttendanceAction string

const (
	ActionCheckIn  AttendanceAction = "CHECK_IN"
	ActionCheckOut AttendanceAction = "CHECK_OUT"
)

type AttendanceOptions struct {
	Location   *time.Location
	LateCutoff config.Clock
}

// AttendanceService moves a user's day through
// NOT_CHECKED_IN -> CHECKED_IN -> CHECKED_OUT.
type AttendanceService struct {
	records  *repos.AttendanceRepo
	users    *repos.UserRepo
	notes    *NotificationService
	tracking *TrackingService
	pub      Publisher
	opts     AttendanceOptions
	lg       *log.Logger
	now      func() time.Time
}

func NewAttendanceService(records *repos.AttendanceRepo, users *repos.UserRepo, notes *NotificationService,
	tracking *TrackingService, pub Publisher, opts AttendanceOptions, lg *log.Logger) *AttendanceService {
	if pub == nil {
		pub = nopPublisher{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &AttendanceService{
		records:  records,
		users:    users,
		notes:    notes,
		tracking: tracking,
		pub:      pub,
		opts:     opts,
		lg:       lg,
		now:      time.Now,
	}
}

// AttendanceEvent is the attendance:updated payload.
type AttendanceEvent struct {
	Type       AttendanceAction `json:"type"`
	UserID     uint             `json:"userId"`
	UserName   string           `json:"userName"`
	Timestamp  time.Time        `json:"timestamp"`
	TotalHours *float64         `json:"totalHours,omitempty"`
	IsLate     bool             `json:"isLate"`
}

// StatusView is what an employee sees for their current day.
type StatusView struct {
	Status       models.AttendanceStatus `json:"status"`
	IsCheckedIn  bool                    `json:"isCheckedIn"`
	CheckInTime  *time.Time              `json:"checkInTime"`
	CheckOutTime *time.Time              `json:"checkOutTime"`
	TotalHours   *float64                `json:"totalHours,omitempty"`
	IsLate       bool                    `json:"isLate"`
	Date         string                  `json:"date"`
}

func (s *AttendanceService) today() (time.Time, string) {
	now := s.now().In(s.opts.Location)
	return now, now.Format(models.DateLayout)
}

// TodayDate is the current calendar date in the configured attendance zone.
func (s *AttendanceService) TodayDate() string {
	_, date := s.today()
	return date
}

// CutoffFor resolves the late cutoff on the given calendar day.
func (s *AttendanceService) CutoffFor(date string) time.Time {
	day, err := time.ParseInLocation(models.DateLayout, date, s.opts.Location)
	if err != nil {
		day = s.now().In(s.opts.Location)
	}
	return s.opts.LateCutoff.On(day)
}

func (s *AttendanceService) IsLate(rec *models.AttendanceRecord) bool {
	if rec == nil {
		return false
	}
	return rec.IsLate(s.CutoffFor(rec.Date))
}

func (s *AttendanceService) CheckIn(ctx context.Context, userID uint, coordinates string, battery *int) (*models.AttendanceRecord, error) {
	now, date := s.today()

	existing, err := s.records.FindByUserDate(ctx, userID, date)
	switch {
	case err == nil && existing.CheckInTime != nil:
		return nil, ErrAlreadyCheckedIn
	case err != nil && !errors.Is(err, repos.ErrNotFound):
		return nil, err
	}

	at := now.UTC()
	rec := &models.AttendanceRecord{
		UserID:          userID,
		Date:            date,
		CheckInTime:     &at,
		CheckInLocation: coordinates,
		CheckInBattery:  battery,
	}

	// The unique (user_id, date) index closes the race between the check
	// above and this insert.
	created, err := s.records.InsertCheckIn(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyCheckedIn
	}

	name := s.userName(ctx, userID)
	late := s.IsLate(rec)

	msg := fmt.Sprintf("%s checked in at %s", name, now.Format("15:04"))
	if late {
		msg += " (late)"
	}
	if _, err := s.notes.Create(ctx, &userID, models.NotificationCheckIn, msg); err != nil {
		s.lg.Printf("write CHECK_IN notification for user %d: %v", userID, err)
	}

	if lat, lng, err := ParseCoordinates(coordinates); err == nil {
		if _, err := s.tracking.Ingest(ctx, userID, LocationInput{Latitude: lat, Longitude: lng, Battery: battery}); err != nil {
			s.lg.Printf("record check-in location for user %d: %v", userID, err)
		}
	}

	s.pub.Publish(EventAttendanceUpdated, userID, AttendanceEvent{
		Type:      ActionCheckIn,
		UserID:    userID,
		UserName:  name,
		Timestamp: at,
		IsLate:    late,
	})
	return rec, nil
}

func (s *AttendanceService) CheckOut(ctx context.Context, userID uint, coordinates string) (*models.AttendanceRecord, error) {
	now, date := s.today()

	rec, err := s.records.FindByUserDate(ctx, userID, date)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, ErrNotCheckedIn
	}
	if err != nil {
		return nil, err
	}
	switch rec.Status() {
	case models.StatusNotCheckedIn:
		return nil, ErrNotCheckedIn
	case models.StatusCheckedOut:
		return nil, ErrAlreadyCheckedOut
	}

	at := now.UTC()
	hours := models.HoursBetween(*rec.CheckInTime, at)

	updated, err := s.records.MarkCheckOut(ctx, rec.ID, at, hours, coordinates)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrAlreadyCheckedOut
	}
	rec.CheckOutTime = &at
	rec.TotalHours = &hours
	rec.CheckOutLocation = coordinates

	name := s.userName(ctx, userID)
	msg := fmt.Sprintf("%s checked out at %s after %.2f hours", name, now.Format("15:04"), hours)
	if _, err := s.notes.Create(ctx, &userID, models.NotificationCheckOut, msg); err != nil {
		s.lg.Printf("write CHECK_OUT notification for user %d: %v", userID, err)
	}

	s.pub.Publish(EventAttendanceUpdated, userID, AttendanceEvent{
		Type:       ActionCheckOut,
		UserID:     userID,
		UserName:   name,
		Timestamp:  at,
		TotalHours: &hours,
		IsLate:     s.IsLate(rec),
	})
	return rec, nil
}

// Apply dispatches a POST /attendance action.
func (s *AttendanceService) Apply(ctx context.Context, userID uint, action AttendanceAction, coordinates string, battery *int) (*models.AttendanceRecord, error) {
	switch action {
	case ActionCheckIn:
		return s.CheckIn(ctx, userID, coordinates, battery)
	case ActionCheckOut:
		return s.CheckOut(ctx, userID, coordinates)
	default:
		return nil, fmt.Errorf("unknown attendance action %q", action)
	}
}

func (s *AttendanceService) Today(ctx context.Context, userID uint) (StatusView, error) {
	_, date := s.today()
	view := StatusView{Status: models.StatusNotCheckedIn, Date: date}

	rec, err := s.records.FindByUserDate(ctx, userID, date)
	if errors.Is(err, repos.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return view, err
	}

	view.Status = rec.Status()
	view.IsCheckedIn = view.Status == models.StatusCheckedIn
	view.CheckInTime = rec.CheckInTime
	view.CheckOutTime = rec.CheckOutTime
	view.TotalHours = rec.TotalHours
	view.IsLate = s.IsLate(rec)
	return view, nil
}

type RecordView struct {
	models.AttendanceRecord
	EmployeeName string                  `json:"employeeName"`
	Status       models.AttendanceStatus `json:"status"`
	IsLate       bool                    `json:"isLate"`
}

type DailySummary struct {
	Date       string       `json:"date"`
	Cutoff     string       `json:"lateCutoff"`
	Present    int          `json:"present"`
	Late       int          `json:"late"`
	CheckedOut int          `json:"checkedOut"`
	Records    []RecordView `json:"records"`
}

// Summary lists a day's records with derived status and lateness. An empty
// date means today.
func (s *AttendanceService) Summary(ctx context.Context, date string) (DailySummary, error) {
	if date == "" {
		_, date = s.today()
	}
	out := DailySummary{Date: date, Cutoff: s.opts.LateCutoff.String(), Records: []RecordView{}}

	records, err := s.records.ListByDate(ctx, date)
	if err != nil {
		return out, err
	}

	for i := range records {
		rec := &records[i]
		view := RecordView{AttendanceRecord: *rec, Status: rec.Status(), IsLate: s.IsLate(rec)}
		if rec.User != nil {
			view.EmployeeName = rec.User.Name
		}
		view.User = nil

		if view.Status != models.StatusNotCheckedIn {
			out.Present++
		}
		if view.IsLate {
			out.Late++
		}
		if view.Status == models.StatusCheckedOut {
			out.CheckedOut++
		}
		out.Records = append(out.Records, view)
	}
	return out, nil
}

// FlagMissedCheckouts writes one MISSED_CHECKOUT notification per past-day
// record that was never checked out.
func (s *AttendanceService) FlagMissedCheckouts(ctx context.Context) (int, error) {
	_, today := s.today()

	open, err := s.records.ListOpenBefore(ctx, today)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for i := range open {
		rec := &open[i]
		name := fmt.Sprintf("user %d", rec.UserID)
		if rec.User != nil {
			name = rec.User.Name
		}
		userID := rec.UserID
		note := s.notes.build(&userID, models.NotificationMissedCheckout,
			fmt.Sprintf("%s did not check out on %s", name, rec.Date))

		ok, err := s.records.FlagMissedCheckout(ctx, rec.ID, note)
		if err != nil {
			return flagged, err
		}
		if !ok {
			continue
		}
		s.notes.announce(note)
		flagged++
	}
	return flagged, nil
}

// RunMissedCheckoutSweeper calls FlagMissedCheckouts every interval until
// ctx is cancelled.
func (s *AttendanceService) RunMissedCheckoutSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.FlagMissedCheckouts(ctx)
			if err != nil {
				s.lg.Printf("missed checkout sweep: %v", err)
				continue
			}
			if n > 0 {
				s.lg.Printf("flagged %d missed checkouts", n)
			}
		}
	}
}

func (s *AttendanceService) userName(ctx context.Context, userID uint) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return u.Name
}
