package domain

import "time"

// Rider represents a passenger account in the system.
type Rider struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}
