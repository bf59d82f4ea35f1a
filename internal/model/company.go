package model

import "time"

// Company mirrors the 'companies' table. Every company has exactly one
// owning user (UserID); ownership is what the update/delete policy checks.
type Company struct {
	ID          uint64
	Name        string // unique
	Origin      string
	Description string
	UserID      uint64 // owner
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
