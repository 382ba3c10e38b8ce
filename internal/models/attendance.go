package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-day key stored in AttendanceRecord.Date.
const DateLayout = "2006-01-02"

type AttendanceStatus string

const (
	StatusNotCheckedIn AttendanceStatus = "NOT_CHECKED_IN"
	StatusCheckedIn    AttendanceStatus = "CHECKED_IN"
	StatusCheckedOut   AttendanceStatus = "CHECKED_OUT"
)

// AttendanceRecord is one row per user per calendar day.
type AttendanceRecord struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	UserID                uint       `gorm:"not null;uniqueIndex:idx_attendance_user_date,priority:1" json:"userId"`
	Date                  string     `gorm:"size:10;not null;uniqueIndex:idx_attendance_user_date,priority:2" json:"date"`
	CheckInTime           *time.Time `json:"checkInTime"`
	CheckOutTime          *time.Time `json:"checkOutTime"`
	TotalHours            *float64   `json:"totalHours"`
	CheckInLocation       string     `gorm:"size:64" json:"checkInLocation"`
	CheckOutLocation      string     `gorm:"size:64" json:"checkOutLocation"`
	CheckInBattery        *int       `json:"checkInBattery,omitempty"`
	MissedCheckoutFlagged bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (AttendanceRecord) TableName() string {
	return "attendance"
}

// StatusOf derives the attendance state of a (possibly missing) record.
func StatusOf(r *AttendanceRecord) AttendanceStatus {
	switch {
	case r == nil || r.CheckInTime == nil:
		return StatusNotCheckedIn
	case r.CheckOutTime == nil:
		return StatusCheckedIn
	default:
		return StatusCheckedOut
	}
}

func (r *AttendanceRecord) Status() AttendanceStatus {
	return StatusOf(r)
}

// IsLate reports whether the check-in happened strictly after cutoff on the
// same day. cutoff must already be resolved to the record's day.
func (r *AttendanceRecord) IsLate(cutoff time.Time) bool {
	if r == nil || r.CheckInTime == nil {
		return false
	}
	return r.CheckInTime.After(cutoff)
}

// HoursBetween returns out-in in hours rounded to two decimals.
func HoursBetween(in, out time.Time) float64 {
	ms := float64(out.Sub(in).Milliseconds())
	return math.Round(ms/3600000*100) / 100
}
