package model

import (
	"strings"
	"time"
)

// PushSubscription is an operator's browser push subscription for lead alerts.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Forms     string    `gorm:"size:256;not null"` // comma-separated form names, empty for all
	CreatedAt time.Time `gorm:"not null"`
}

// Wants reports whether the subscription should be alerted for form.
func (s PushSubscription) Wants(form string) bool {
	if strings.TrimSpace(s.Forms) == "" {
		return true
	}
	for _, f := range strings.Split(s.Forms, ",") {
		if strings.TrimSpace(f) == form {
			return true
		}
	}
	return false
}
