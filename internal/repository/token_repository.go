package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists the revocation list (single 'token_hash' key column).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Revoke records a token hash until exp.  Revoking twice is a no-op apart
// from keeping the later expiry.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO token_blacklist (token_hash, expires_at) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE expires_at = GREATEST(expires_at, VALUES(expires_at))`,
		tokenHash, exp.UTC())
	return err
}

// IsRevoked reports whether the hash is listed and not yet past its expiry.
func (r *TokenRepo) IsRevoked(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM token_blacklist WHERE token_hash = ? AND expires_at > ? LIMIT 1",
		tokenHash, now.UTC()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes entries whose expiry has passed and returns how many
// were removed.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM token_blacklist WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
