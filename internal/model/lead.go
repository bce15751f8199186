package model

import "time"

// Lead is a successfully delivered form submission.
type Lead struct {
	ID        string    `gorm:"primaryKey;size:36"`
	SessionID string    `gorm:"index;size:36;not null"`
	FormName  string    `gorm:"index;size:32;not null"`
	ListingID *int64    `gorm:"index"`
	Payload   string    `gorm:"type:text;not null"` // url-encoded body as sent
	CreatedAt time.Time `gorm:"not null"`
}
