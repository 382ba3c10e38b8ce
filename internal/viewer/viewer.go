package viewer

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/apiclient"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

type Stream interface {
	Next() (apiclient.Event, error)
	Close() error
}

// Source is where the viewer reads from: the snapshot endpoint and the
// realtime channel.
type Source interface {
	Locations(ctx context.Context, window time.Duration) ([]services.LocationView, error)
	Connect(ctx context.Context) (Stream, error)
}

// ClientSource adapts an authenticated apiclient.Client.
type ClientSource struct {
	Client *apiclient.Client
}

func (s ClientSource) Locations(ctx context.Context, window time.Duration) ([]services.LocationView, error) {
	return s.Client.Locations(ctx, window)
}

func (s ClientSource) Connect(ctx context.Context) (Stream, error) {
	return s.Client.Dial(ctx)
}

type Viewer struct {
	src    Source
	board  *Board
	poll   time.Duration
	window time.Duration
	lg     *log.Logger
	now    func() time.Time
	live   atomic.Bool

	// OnChange is called after the board changes, from the Run goroutine.
	OnChange func(*Board)
}

func New(src Source, board *Board, poll, window time.Duration, lg *log.Logger) *Viewer {
	return &Viewer{src: src, board: board, poll: poll, window: window, lg: lg, now: time.Now}
}

// NewFromConfig builds a viewer whose idle threshold, snapshot window and
// poll interval match the server's /config/client.
func NewFromConfig(src Source, cc *apiclient.ClientConfig, lg *log.Logger) *Viewer {
	return New(src, NewBoard(cc.IdleTimeout), cc.PollInterval, cc.TrackingWindow, lg)
}

func (v *Viewer) Board() *Board { return v.board }

// Live reports whether updates currently arrive over the realtime channel.
func (v *Viewer) Live() bool { return v.live.Load() }

// Run loads the snapshot and follows the realtime channel. When the channel
// fails it polls the snapshot every poll interval, trying to reconnect on
// each tick, and reloads the snapshot once reconnected. Run returns when ctx
// is cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	v.refresh(ctx)
	stream, err := v.src.Connect(ctx)

	for {
		if err == nil {
			v.live.Store(true)
			err = v.consume(ctx, stream)
			v.live.Store(false)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		v.lg.Printf("realtime channel unavailable, polling every %s: %v", v.poll, err)
		stream, err = v.pollUntilConnected(ctx)
		if err != nil {
			return err
		}
		v.refresh(ctx)
	}
}

func (v *Viewer) pollUntilConnected(ctx context.Context) (Stream, error) {
	ticker := time.NewTicker(v.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		v.refresh(ctx)
		stream, err := v.src.Connect(ctx)
		if err == nil {
			v.lg.Println("realtime channel reconnected")
			return stream, nil
		}
	}
}

func (v *Viewer) refresh(ctx context.Context) {
	views, err := v.src.Locations(ctx, v.window)
	if err != nil {
		if ctx.Err() == nil {
			v.lg.Printf("load locations snapshot: %v", err)
		}
		return
	}
	if v.board.ApplySnapshot(views, v.now()) > 0 {
		v.changed()
	}
}

func (v *Viewer) consume(ctx context.Context, stream Stream) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if err != nil {
			return err
		}
		if v.handle(ev) {
			v.changed()
		}
	}
}

func (v *Viewer) handle(ev apiclient.Event) bool {
	switch ev.Type {
	case services.EventLocationUpdated:
		var sample models.TrackingSample
		if err := json.Unmarshal(ev.Payload, &sample); err != nil {
			v.lg.Printf("bad %s payload: %v", ev.Type, err)
			return false
		}
		return v.board.ApplyPush(Marker{
			UserID:         sample.UserID,
			Lat:            sample.Latitude,
			Lng:            sample.Longitude,
			Battery:        sample.Battery,
			IsMockLocation: sample.IsMockLocation,
			LastUpdate:     sample.Timestamp,
		})
	case services.EventAttendanceUpdated:
		var event services.AttendanceEvent
		if err := json.Unmarshal(ev.Payload, &event); err != nil {
			v.lg.Printf("bad %s payload: %v", ev.Type, err)
			return false
		}
		v.board.SetCheckedIn(event.UserID, event.UserName, event.Type == services.ActionCheckIn)
		return true
	default:
		return false
	}
}

func (v *Viewer) changed() {
	if v.OnChange != nil {
		v.OnChange(v.board)
	}
}
