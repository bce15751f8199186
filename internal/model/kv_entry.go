package model

import "time"

// KVEntry is one persisted key of a visitor's storage. Scope isolates
// visitors from each other the way an origin does in a browser.
type KVEntry struct {
	Scope     string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}
