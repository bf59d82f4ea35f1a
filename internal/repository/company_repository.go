package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/authors-api/internal/model"
)

// ErrCompanyNotFound is returned when a company cannot be found in the DB.
var ErrCompanyNotFound = errors.New("company not found")

// ErrCompanyNameExists signals a uniqueness violation on the company name.
var ErrCompanyNameExists = errors.New("company name already exists")

// CompanyRepo owns the 'companies' table.
type CompanyRepo struct{ db *sql.DB }

func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{db: db} }

const companyCols = "id, name, origin, description, user_id, created_at, updated_at"

// Create inserts a new company and populates its ID and timestamps.
func (r *CompanyRepo) Create(ctx context.Context, c *model.Company) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO companies (name, origin, description, user_id) VALUES (?,?,?,?)",
		c.Name, c.Origin, c.Description, c.UserID)
	if err != nil {
		if isDuplicate(err, "name") {
			return ErrCompanyNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	const q = "SELECT created_at, updated_at FROM companies WHERE id = ?"
	return r.db.QueryRowContext(ctx, q, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByID fetches a company by id. Returns ErrCompanyNotFound when absent.
func (r *CompanyRepo) GetByID(ctx context.Context, id uint64) (*model.Company, error) {
	var c model.Company
	err := r.db.QueryRowContext(ctx,
		"SELECT "+companyCols+" FROM companies WHERE id = ? LIMIT 1", id).
		Scan(&c.ID, &c.Name, &c.Origin, &c.Description, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all companies ordered by id. The route is admin-gated;
// the repository itself does not filter.
func (r *CompanyRepo) List(ctx context.Context) ([]*model.Company, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+companyCols+" FROM companies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Origin, &c.Description, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Update writes the mutable columns from c; callers apply patch semantics
// before calling.
func (r *CompanyRepo) Update(ctx context.Context, c *model.Company) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE companies
		 SET name = ?, origin = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.Name, c.Origin, c.Description, c.ID)
	if err != nil {
		if isDuplicate(err, "name") {
			return ErrCompanyNameExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM companies WHERE id = ?", c.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCompanyNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a company by id.
func (r *CompanyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCompanyNotFound
	}
	return nil
}
