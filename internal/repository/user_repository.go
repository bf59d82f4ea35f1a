package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/authors-api/internal/model"
)

// ErrUserNotFound is returned when a user cannot be found in the DB.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists and ErrContactExists signal uniqueness violations on the
// two identity columns; the DB constraint is the arbiter so concurrent
// registrations racing on the same value yield exactly one winner.
var (
	ErrEmailExists   = errors.New("email already exists")
	ErrContactExists = errors.New("contact already exists")
)

// UserRepo is the credential store: it owns the 'users' table and the
// cascade that removes a user's books together with the user.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userCols = "id, first_name, last_name, email, contact, password_hash, biography, role, company_id, created_at, updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u         model.User
		role      string
		companyID sql.NullInt64
		biography sql.NullString
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Contact,
		&u.PasswordHash, &biography, &role, &companyID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Biography = biography.String
	if companyID.Valid {
		id := uint64(companyID.Int64)
		u.CompanyID = &id
	}
	return &u, nil
}

// Create inserts a new user and populates its ID and timestamps. Email is
// normalized to lower case. Duplicate email or contact surfaces as
// ErrEmailExists / ErrContactExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (first_name, last_name, email, contact, password_hash, biography, role, company_id) VALUES (?,?,?,?,?,?,?,?)",
		u.FirstName, u.LastName, u.Email, u.Contact, u.PasswordHash, u.Biography, string(u.Role), companyArg(u.CompanyID))
	if err != nil {
		switch {
		case isDuplicate(err, "email"):
			return ErrEmailExists
		case isDuplicate(err, "contact"):
			return ErrContactExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)

	const q = "SELECT created_at, updated_at FROM users WHERE id = ?"
	return r.db.QueryRowContext(ctx, q, u.ID).Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail fetches a user by normalized email. Returns ErrUserNotFound
// when no row matches.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email = ? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userCols+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		var (
			u         model.User
			role      string
			companyID sql.NullInt64
			biography sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Contact,
			&u.PasswordHash, &biography, &role, &companyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = model.Role(role)
		u.Biography = biography.String
		if companyID.Valid {
			id := uint64(companyID.Int64)
			u.CompanyID = &id
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// Update writes every mutable column from u. Callers load the row first and
// apply patch semantics, so unsupplied fields keep their prior values.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, email = ?, contact = ?, password_hash = ?, biography = ?, role = ?, company_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		u.FirstName, u.LastName, u.Email, u.Contact, u.PasswordHash, u.Biography, string(u.Role), companyArg(u.CompanyID), u.ID)
	if err != nil {
		switch {
		case isDuplicate(err, "email"):
			return ErrEmailExists
		case isDuplicate(err, "contact"):
			return ErrContactExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows can also mean a no-op write; confirm existence.
		var one int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", u.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes the user and every book they authored inside one
// transaction, so a failure on either statement rolls back both. It returns
// the number of books that went down with the user.
func (r *UserRepo) Delete(ctx context.Context, id uint64) (booksDeleted int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var res sql.Result
	if res, err = tx.ExecContext(ctx, "DELETE FROM books WHERE user_id = ?", id); err != nil {
		return 0, err
	}
	booksDeleted, _ = res.RowsAffected()

	if res, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrUserNotFound
		return 0, err
	}
	return booksDeleted, nil
}

func companyArg(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
