package models

import "time"

// Announcement is immutable once posted; listings order newest-first.
type Announcement struct {
	ID          string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}
