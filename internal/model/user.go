package model

import "time"

// User mirrors the 'users' table. PasswordHash never leaves the service;
// handlers build separate response types. Biography is only meaningful for
// authors and is stored as an empty string otherwise. CompanyID is nil when
// the user is not attached to a company.
type User struct {
	ID           uint64
	FirstName    string
	LastName     string
	Email        string // unique
	Contact      string // unique
	PasswordHash string
	Role         Role
	Biography    string
	CompanyID    *uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
