// Package services holds the attendance state machine, location ingest and
// the notification writer. Handlers and the websocket layer call into these;
// nothing here knows about HTTP.
package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrAlreadyCheckedIn   = errors.New("already checked in today")
	ErrNotCheckedIn       = errors.New("not checked in today")
	ErrAlreadyCheckedOut  = errors.New("already checked out today")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
)

// Realtime event names.
const (
	EventLocationUpdated     = "location:updated"
	EventAttendanceUpdated   = "attendance:updated"
	EventNotificationCreated = "notification:created"
)

// Publisher fans an event out to viewers interested in userID. A zero
// userID addresses every connected viewer. Implementations must not block.
type Publisher interface {
	Publish(event string, userID uint, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, uint, any) {}

// ParseCoordinates reads a "lat,lng" pair.
func ParseCoordinates(value string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, value)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, value)
	}
	if err := validateLatLng(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func validateLatLng(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("%w: %f,%f is not a number", ErrInvalidCoordinates, lat, lng)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: %f,%f out of range", ErrInvalidCoordinates, lat, lng)
	}
	return nil
}
