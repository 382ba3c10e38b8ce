// Package repos wraps gorm access to the attendance, tracking, notification
// and user tables.
package repos

import "errors"

var ErrNotFound = errors.New("record not found")
