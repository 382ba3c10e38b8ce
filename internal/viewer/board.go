// Package viewer keeps the admin map state: one marker per employee, fed by
// the locations snapshot and the realtime channel.
package viewer

import (
	"sort"
	"sync"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/services"
)

type Color string

const (
	Green Color = "green"
	Gray  Color = "gray"
)

type Marker struct {
	UserID         uint
	Name           string
	Lat            float64
	Lng            float64
	Battery        int
	IsMockLocation bool
	LastUpdate     time.Time
	CheckedIn      bool
}

// Board is safe for concurrent use. Position updates are last-write-wins by
// LastUpdate whichever source they come from.
type Board struct {
	mu      sync.RWMutex
	markers map[uint]Marker
	idle    time.Duration
}

func NewBoard(idle time.Duration) *Board {
	return &Board{markers: make(map[uint]Marker), idle: idle}
}

// Apply stores m unless the board already holds a reading for the same user
// that is at least as new. A newer m replaces the marker as a whole. It
// reports whether m was stored.
func (b *Board) Apply(m Marker) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apply(m)
}

func (b *Board) apply(m Marker) bool {
	cur, ok := b.markers[m.UserID]
	if ok && !m.LastUpdate.After(cur.LastUpdate) {
		if m.Name != "" && cur.Name == "" {
			cur.Name = m.Name
			b.markers[m.UserID] = cur
		}
		return false
	}
	if ok && m.Name == "" {
		m.Name = cur.Name
	}
	b.markers[m.UserID] = m
	return true
}

// ApplyPush stores a realtime position. Pushes carry no attendance state, so
// the current CheckedIn is kept.
func (b *Board) ApplyPush(m Marker) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.markers[m.UserID]; ok {
		m.CheckedIn = cur.CheckedIn
	}
	return b.apply(m)
}

// ApplySnapshot merges a locations snapshot taken at now and returns how
// many markers changed. Positions follow last-write-wins; the attendance
// state the snapshot implies is applied even to older positions, because
// the snapshot is the only source that can correct a missed
// attendance:updated event.
func (b *Board) ApplySnapshot(views []services.LocationView, now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := 0
	for _, v := range views {
		cur, exists := b.markers[v.UserID]
		checkedIn, known := b.checkedInFrom(v, now)
		if !known {
			checkedIn = exists && cur.CheckedIn
		}

		m := Marker{
			UserID:         v.UserID,
			Name:           v.EmployeeName,
			Lat:            v.Lat,
			Lng:            v.Lng,
			Battery:        v.Battery,
			IsMockLocation: v.IsMockLocation,
			LastUpdate:     v.LastUpdate,
			CheckedIn:      checkedIn,
		}
		if b.apply(m) {
			changed++
			continue
		}
		if known && cur.CheckedIn != checkedIn {
			cur = b.markers[v.UserID]
			cur.CheckedIn = checkedIn
			b.markers[v.UserID] = cur
			changed++
		}
	}
	return changed
}

// checkedInFrom reads the attendance state out of a server presence. The
// server reports active when checked in or seen within idle, so inactive
// means not checked in and a stale active means checked in. A fresh active
// says nothing.
func (b *Board) checkedInFrom(v services.LocationView, now time.Time) (checkedIn, known bool) {
	switch {
	case v.Status == models.PresenceInactive:
		return false, true
	case now.Sub(v.LastUpdate) > b.idle:
		return true, true
	default:
		return false, false
	}
}

func (b *Board) SetCheckedIn(userID uint, name string, checkedIn bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.markers[userID]
	if !ok {
		return
	}
	m.CheckedIn = checkedIn
	if m.Name == "" {
		m.Name = name
	}
	b.markers[userID] = m
}

func (b *Board) Get(userID uint) (Marker, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.markers[userID]
	return m, ok
}

// Markers returns a copy ordered by user id.
func (b *Board) Markers() []Marker {
	b.mu.RLock()
	out := make([]Marker, 0, len(b.markers))
	for _, m := range b.markers {
		out = append(out, m)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (b *Board) Presence(m Marker, now time.Time) models.Presence {
	return models.PresenceOf(m.LastUpdate, now, b.idle, m.CheckedIn)
}

func (b *Board) Color(m Marker, now time.Time) Color {
	if b.Presence(m, now) == models.PresenceActive {
		return Green
	}
	return Gray
}
