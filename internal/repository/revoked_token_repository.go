package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RevokedTokenRepo is the revocation ledger: an append-only set of jti
// claims invalidated by logout. It is consulted on every protected request,
// never cached, so a revoke is visible to the next validation that hits the
// same database.
type RevokedTokenRepo struct{ db *sql.DB }

func NewRevokedTokenRepo(db *sql.DB) *RevokedTokenRepo { return &RevokedTokenRepo{db: db} }

// Revoke records a jti as invalid. The insert is idempotent: revoking an
// already-revoked jti leaves the existing row untouched and returns nil.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO revoked_tokens (jti) VALUES (?) ON DUPLICATE KEY UPDATE jti = jti",
		jti)
	return err
}

// IsRevoked reports whether jti is present in the ledger.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti = ? LIMIT 1", jti).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PruneBefore deletes ledger rows revoked before the cutoff. Expired tokens
// are already unusable, so pruning is garbage collection, not correctness.
func (r *RevokedTokenRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE revoked_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
