package models

import "time"

// TrackingSample is an append-only location reading.
type TrackingSample struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"not null;index:idx_tracking_user_time,priority:1" json:"userId"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	Speed          *float64  `json:"speed,omitempty"`
	Battery        int       `gorm:"not null;default:100" json:"battery"`
	IsMockLocation bool      `gorm:"not null;default:false" json:"isMockLocation"`
	Timestamp      time.Time `gorm:"column:recorded_at;not null;index:idx_tracking_user_time,priority:2" json:"timestamp"`
}

func (TrackingSample) TableName() string {
	return "tracking"
}

type Presence string

const (
	PresenceActive   Presence = "active"
	PresenceInactive Presence = "inactive"
)

// PresenceOf decides whether an employee counts as active on the map: either
// currently checked in, or seen within idle of now.
func PresenceOf(lastUpdate, now time.Time, idle time.Duration, checkedIn bool) Presence {
	if checkedIn {
		return PresenceActive
	}
	if !lastUpdate.IsZero() && now.Sub(lastUpdate) <= idle {
		return PresenceActive
	}
	return PresenceInactive
}
