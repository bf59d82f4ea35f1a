package model

import "time"

// Book mirrors the 'books' table. UserID references the authoring user and
// CompanyID the publishing company; both are plain foreign keys, joins are
// done in the repository layer. Price is nil when not set, PriceUnit
// defaults to UGX. PublicationDate carries only the date part.
type Book struct {
	ID              uint64
	Title           string
	Description     string
	Price           *int64
	PriceUnit       string
	Pages           int
	PublicationDate time.Time
	ISBN            string // unique
	Genre           string
	UserID          uint64 // authoring user
	CompanyID       uint64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DefaultPriceUnit is applied when a book is registered without one.
const DefaultPriceUnit = "UGX"
