package sampler

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/apiclient"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = log.New(io.Discard, "", 0)

type fakeBattery struct {
	level int
	err   error
}

func (b fakeBattery) Level() (int, error) { return b.level, b.err }

type blockingLocator struct{}

func (blockingLocator) Locate(ctx context.Context, _ LocateOptions) (Position, error) {
	<-ctx.Done()
	return Position{}, ctx.Err()
}

type failingLocator struct{ err error }

func (l failingLocator) Locate(context.Context, LocateOptions) (Position, error) {
	return Position{}, l.err
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []apiclient.Reading
	err    error
}

func (e *fakeEmitter) Send(event string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, payload.(apiclient.Reading))
	return nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	readings []apiclient.Reading
	err      error
}

func (s *fakeSubmitter) PostLocation(_ context.Context, r apiclient.Reading) (*models.TrackingSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.readings = append(s.readings, r)
	return &models.TrackingSample{Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func TestSampleAndSubmitEmitsAndPosts(t *testing.T) {
	emitter := &fakeEmitter{}
	submitter := &fakeSubmitter{}
	s := New(StaticLocator{Latitude: -6.2, Longitude: 106.8, IsMockLocation: true}, fakeBattery{level: 42}, emitter, submitter, discard)

	reading, err := s.SampleAndSubmit(context.Background())
	require.NoError(t, err)

	want := apiclient.Reading{Latitude: -6.2, Longitude: 106.8, Battery: 42, IsMockLocation: true}
	assert.Equal(t, want, reading)
	assert.Equal(t, []apiclient.Reading{want}, emitter.events)
	assert.Equal(t, []apiclient.Reading{want}, submitter.readings)
}

func TestSampleAndSubmitSurvivesEmitFailure(t *testing.T) {
	submitter := &fakeSubmitter{}
	s := New(StaticLocator{Latitude: 1, Longitude: 2}, nil, &fakeEmitter{err: errors.New("socket closed")}, submitter, discard)

	reading, err := s.SampleAndSubmit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, reading.Battery)
	assert.Equal(t, 1, submitter.count())
}

func TestBatteryFallsBackTo100(t *testing.T) {
	s := New(StaticLocator{}, fakeBattery{err: errors.New("unsupported")}, nil, &fakeSubmitter{}, discard)
	assert.Equal(t, 100, s.BatteryLevel())

	s = New(StaticLocator{}, fakeBattery{level: 130}, nil, &fakeSubmitter{}, discard)
	assert.Equal(t, 100, s.BatteryLevel())
}

func TestLocateErrorKinds(t *testing.T) {
	s := New(blockingLocator{}, nil, nil, &fakeSubmitter{}, discard)
	s.SetLocateOptions(LocateOptions{HighAccuracy: true, Timeout: 20 * time.Millisecond})

	_, err := s.SampleAndSubmit(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)

	for _, kind := range []error{ErrPermissionDenied, ErrPositionUnavailable} {
		submitter := &fakeSubmitter{}
		s := New(failingLocator{err: kind}, nil, nil, submitter, discard)
		_, err := s.SampleAndSubmit(context.Background())
		assert.ErrorIs(t, err, kind)
		assert.Zero(t, submitter.count())
	}
}

func TestSubmitErrorIsReturned(t *testing.T) {
	s := New(StaticLocator{}, nil, nil, &fakeSubmitter{err: &apiclient.APIError{Status: 500}}, discard)
	_, err := s.SampleAndSubmit(context.Background())

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
}

func TestStartStopExactlyOnce(t *testing.T) {
	submitter := &fakeSubmitter{}
	s := New(StaticLocator{Latitude: 1, Longitude: 1}, nil, nil, submitter, discard)

	s.Start(5 * time.Millisecond)
	s.Start(5 * time.Millisecond)
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return submitter.count() >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	stopped := submitter.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, submitter.count())
}

func TestLoopReportsErrorsAndKeepsTicking(t *testing.T) {
	var mu sync.Mutex
	var errs []error

	s := New(failingLocator{err: ErrPositionUnavailable}, nil, nil, &fakeSubmitter{}, discard)
	s.OnError = func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	s.Start(5 * time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) >= 2
	}, time.Second, time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, errs[0], ErrPositionUnavailable)
}

type fakeAttendance struct {
	mu      sync.Mutex
	actions []services.AttendanceAction
	coords  []string
	err     error
	// runningAtCheckOut records whether sampling was still active when the
	// checkout request was sent.
	sampler           *Sampler
	runningAtCheckOut bool
}

func (f *fakeAttendance) Attendance(_ context.Context, action services.AttendanceAction, coordinates string, _ *int) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if action == services.ActionCheckOut && f.sampler != nil {
		f.runningAtCheckOut = f.sampler.Running()
	}
	f.actions = append(f.actions, action)
	f.coords = append(f.coords, coordinates)
	return &models.AttendanceRecord{}, nil
}

func TestSessionStartsAndStopsSampling(t *testing.T) {
	submitter := &fakeSubmitter{}
	s := New(StaticLocator{Latitude: -6.2, Longitude: 106.8}, nil, nil, submitter, discard)
	api := &fakeAttendance{sampler: s}
	session := NewSession(api, s, 5*time.Millisecond)

	_, err := session.CheckIn(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return submitter.count() >= 1 }, time.Second, time.Millisecond)

	_, err = session.CheckOut(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Running())
	assert.False(t, api.runningAtCheckOut)

	assert.Equal(t, []services.AttendanceAction{services.ActionCheckIn, services.ActionCheckOut}, api.actions)
	assert.Equal(t, "-6.200000,106.800000", api.coords[0])
}

func TestSessionFailedCheckInDoesNotSample(t *testing.T) {
	s := New(StaticLocator{}, nil, nil, &fakeSubmitter{}, discard)
	session := NewSession(&fakeAttendance{err: &apiclient.APIError{Status: 409, Message: "already checked in"}}, s, time.Millisecond)

	_, err := session.CheckIn(context.Background())
	require.Error(t, err)
	assert.False(t, s.Running())
}

func TestFileLocator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fix")

	_, err := FileLocator{Path: path}.Locate(context.Background(), DefaultLocateOptions)
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	require.NoError(t, os.WriteFile(path, []byte("\n-6.2, 106.8, true\n"), 0o600))
	pos, err := FileLocator{Path: path}.Locate(context.Background(), DefaultLocateOptions)
	require.NoError(t, err)
	assert.Equal(t, Position{Latitude: -6.2, Longitude: 106.8, IsMockLocation: true}, pos)

	require.NoError(t, os.WriteFile(path, []byte("nowhere"), 0o600))
	_, err = FileLocator{Path: path}.Locate(context.Background(), DefaultLocateOptions)
	assert.ErrorIs(t, err, ErrPositionUnavailable)
}

func TestSysfsBattery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "BAT0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAT0", "capacity"), []byte("87\n"), 0o600))

	level, err := SysfsBattery{Glob: filepath.Join(dir, "*", "capacity")}.Level()
	require.NoError(t, err)
	assert.Equal(t, 87, level)

	_, err = SysfsBattery{Glob: filepath.Join(dir, "missing", "capacity")}.Level()
	assert.Error(t, err)
}
