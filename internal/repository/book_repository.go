package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/authors-api/internal/model"
)

// ErrBookNotFound is returned when a book cannot be found in the DB.
var ErrBookNotFound = errors.New("book not found")

// ErrISBNExists signals a uniqueness violation on the global ISBN index.
var ErrISBNExists = errors.New("isbn already exists")

// ErrBadCompanyRef is returned when a book insert or update references a
// company that does not exist (FK violation).
var ErrBadCompanyRef = errors.New("company reference does not exist")

// BookRepo owns the 'books' table.
type BookRepo struct{ db *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

const bookCols = "id, title, description, price, price_unit, pages, publication_date, isbn, genre, user_id, company_id, created_at, updated_at"

func scanBookRow(scan func(dest ...any) error) (*model.Book, error) {
	var (
		b     model.Book
		price sql.NullInt64
	)
	err := scan(&b.ID, &b.Title, &b.Description, &price, &b.PriceUnit, &b.Pages,
		&b.PublicationDate, &b.ISBN, &b.Genre, &b.UserID, &b.CompanyID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		p := price.Int64
		b.Price = &p
	}
	return &b, nil
}

// Create inserts a new book and populates its ID and timestamps. The unique
// ISBN index is the arbiter for duplicates.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	if b.PriceUnit == "" {
		b.PriceUnit = model.DefaultPriceUnit
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO books (title, description, price, price_unit, pages, publication_date, isbn, genre, user_id, company_id) VALUES (?,?,?,?,?,?,?,?,?,?)",
		b.Title, b.Description, priceArg(b.Price), b.PriceUnit, b.Pages,
		b.PublicationDate.Format("2006-01-02"), b.ISBN, b.Genre, b.UserID, b.CompanyID)
	if err != nil {
		switch {
		case isDuplicate(err, "isbn"):
			return ErrISBNExists
		case isFKViolation(err):
			return ErrBadCompanyRef
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	const q = "SELECT created_at, updated_at FROM books WHERE id = ?"
	return r.db.QueryRowContext(ctx, q, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID fetches a book by id. Returns ErrBookNotFound when absent.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookCols+" FROM books WHERE id = ? LIMIT 1", id)
	b, err := scanBookRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	return b, err
}

// List returns all books ordered by id. Book browsing is public, so no
// owner filter exists here.
func (r *BookRepo) List(ctx context.Context) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+bookCols+" FROM books ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Book
	for rows.Next() {
		b, err := scanBookRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update writes every mutable column from b; callers apply patch semantics
// before calling. Last writer wins, no row locking.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE books
		 SET title = ?, description = ?, price = ?, price_unit = ?, pages = ?, publication_date = ?, isbn = ?, genre = ?, company_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.Title, b.Description, priceArg(b.Price), b.PriceUnit, b.Pages,
		b.PublicationDate.Format("2006-01-02"), b.ISBN, b.Genre, b.CompanyID, b.ID)
	if err != nil {
		switch {
		case isDuplicate(err, "isbn"):
			return ErrISBNExists
		case isFKViolation(err):
			return ErrBadCompanyRef
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM books WHERE id = ?", b.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a single book by id.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookNotFound
	}
	return nil
}

func priceArg(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
