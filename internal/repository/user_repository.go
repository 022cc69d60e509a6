package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/elibrary/internal/model"
)

// UserRepo persists user identities in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,created_at,updated_at"

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts the user and fills ID, CreatedAt and UpdatedAt.  The
// unique index on email is the only duplicate check: a collision returns
// ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.NewString()
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role) VALUES (?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrEmailExists
		}
		return err
	}
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM users WHERE id=?", u.ID).Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update applies the non-nil fields of p and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, id string, p model.UserPatch) (*model.User, error) {
	if p.Empty() {
		return nil, ErrNoFields
	}
	var email *string
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		email = &e
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email = COALESCE(?, email), updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		email, id)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// SetRole changes a user's role.  Outstanding tokens keep the role they
// were issued with until they expire or are revoked.
func (r *UserRepo) SetRole(ctx context.Context, id, role string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
