// Package queue defines the audit events exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

// BookRegisteredEvent is published when an author registers a new book.
type BookRegisteredEvent struct {
	BookID       uint64 `json:"book_id"`
	Title        string `json:"title"`
	ISBN         string `json:"isbn"`
	AuthorID     uint64 `json:"author_id"`
	CompanyID    uint64 `json:"company_id"`
	RegisteredAt string `json:"registered_at"`
}

// UserDeletedEvent is published when an account is deleted together with
// its authored books.
type UserDeletedEvent struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	BooksDeleted int64  `json:"books_deleted"`
	DeletedAt    string `json:"deleted_at"`
}
