// Package sampler periodically reads the device position and battery and
// submits them to the server.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/apiclient"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

const EventLocationUpdate = "location:update"

type Position struct {
	Latitude       float64
	Longitude      float64
	Speed          *float64
	IsMockLocation bool
}

type LocateOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is the oldest cached fix a locator may return. Zero forces
	// a fresh reading.
	MaximumAge time.Duration
}

var DefaultLocateOptions = LocateOptions{HighAccuracy: true, Timeout: 10 * time.Second}

type Locator interface {
	Locate(ctx context.Context, opts LocateOptions) (Position, error)
}

type BatteryReader interface {
	Level() (int, error)
}

// Emitter pushes a reading onto the realtime channel.
type Emitter interface {
	Send(event string, payload any) error
}

// Submitter persists a reading through the ingest endpoint.
type Submitter interface {
	PostLocation(ctx context.Context, r apiclient.Reading) (*models.TrackingSample, error)
}

type Sampler struct {
	locator   Locator
	battery   BatteryReader
	emitter   Emitter
	submitter Submitter
	opts      LocateOptions
	lg        *log.Logger

	// OnError receives every failed tick. The loop itself always waits for
	// the next tick.
	OnError func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(locator Locator, battery BatteryReader, emitter Emitter, submitter Submitter, lg *log.Logger) *Sampler {
	return &Sampler{
		locator:   locator,
		battery:   battery,
		emitter:   emitter,
		submitter: submitter,
		opts:      DefaultLocateOptions,
		lg:        lg,
	}
}

func (s *Sampler) SetLocateOptions(opts LocateOptions) {
	s.opts = opts
}

// Locate reads the position with the sampler's options, mapping an expired
// deadline to ErrTimeout.
func (s *Sampler) Locate(ctx context.Context) (Position, error) {
	lctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	pos, err := s.locator.Locate(lctx, s.opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Position{}, fmt.Errorf("%w after %s", ErrTimeout, s.opts.Timeout)
		}
		return Position{}, err
	}
	return pos, nil
}

// BatteryLevel reports 100 when the reader is missing or fails.
func (s *Sampler) BatteryLevel() int {
	if s.battery == nil {
		return 100
	}
	level, err := s.battery.Level()
	if err != nil {
		return 100
	}
	return min(max(level, 0), 100)
}

// SampleAndSubmit takes one reading, emits it on the realtime channel and
// POSTs it for persistence. The two are independent: a failed emit is only
// logged.
func (s *Sampler) SampleAndSubmit(ctx context.Context) (apiclient.Reading, error) {
	pos, err := s.Locate(ctx)
	if err != nil {
		return apiclient.Reading{}, err
	}

	reading := apiclient.Reading{
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		Speed:          pos.Speed,
		Battery:        s.BatteryLevel(),
		IsMockLocation: pos.IsMockLocation,
	}

	if s.emitter != nil {
		if err := s.emitter.Send(EventLocationUpdate, reading); err != nil {
			s.lg.Printf("emit location update: %v", err)
		}
	}

	if _, err := s.submitter.PostLocation(ctx, reading); err != nil {
		return reading, fmt.Errorf("submit location: %w", err)
	}
	return reading, nil
}

// Start samples immediately and then every interval until Stop. Calling
// Start while running is a no-op.
func (s *Sampler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, interval, s.done)
}

// Stop cancels the running loop and waits for it to exit; no sample is
// submitted after Stop returns. Extra calls are no-ops.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Sampler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sampler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.SampleAndSubmit(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.lg.Printf("location sample failed: %v", err)
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}
