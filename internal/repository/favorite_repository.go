package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/elibrary/internal/model"
)

// FavoriteRepo manages the user↔book favorites relation.
type FavoriteRepo struct{ db *sql.DB }

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Add records the pair.  There is no existence pre-check: the unique
// (user_id, book_id) index decides, and its violation becomes
// ErrAlreadyFavorite.  An unknown book fails the foreign key and becomes
// ErrNotFound.
func (r *FavoriteRepo) Add(ctx context.Context, userID, bookID string) (*model.Favorite, error) {
	f := model.Favorite{ID: uuid.NewString(), UserID: userID, BookID: bookID}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO favorites (id, user_id, book_id) VALUES (?, ?, ?)", f.ID, userID, bookID)
	if err != nil {
		switch {
		case isDuplicateEntry(err):
			return nil, ErrAlreadyFavorite
		case isMissingReference(err):
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, "SELECT created_at FROM favorites WHERE id = ?", f.ID).Scan(&f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// Remove deletes the pair; ErrNotFound when it did not exist.
func (r *FavoriteRepo) Remove(ctx context.Context, userID, bookID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM favorites WHERE user_id = ? AND book_id = ?", userID, bookID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a page of the user's favorites with book summaries,
// most recently added first.
func (r *FavoriteRepo) ListByUser(ctx context.Context, userID string, page, limit int) (model.Page[model.UserFavorite], error) {
	out := model.Page[model.UserFavorite]{Items: []model.UserFavorite{}, Page: page, Limit: limit}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE user_id = ?", userID).Scan(&out.Total); err != nil {
		return out, err
	}
	const q = `SELECT f.id, f.user_id, f.book_id, f.created_at, b.title, b.description, b.image_url
	             FROM favorites f
	             JOIN books b ON b.id = f.book_id
	            WHERE f.user_id = ?
	            ORDER BY f.created_at DESC, f.id DESC
	            LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, out.Offset())
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			f         model.UserFavorite
			desc, img sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.UserID, &f.BookID, &f.CreatedAt, &f.Title, &desc, &img); err != nil {
			return out, err
		}
		f.Description = nullable(desc)
		f.ImageURL = nullable(img)
		out.Items = append(out.Items, f)
	}
	return out, rows.Err()
}

// ListByBook returns every favorite of a book with the user's email.
func (r *FavoriteRepo) ListByBook(ctx context.Context, bookID string) ([]model.BookFavorite, error) {
	const q = `SELECT f.id, f.user_id, f.book_id, f.created_at, u.email
	             FROM favorites f
	             JOIN users u ON u.id = f.user_id
	            WHERE f.book_id = ?
	            ORDER BY f.created_at DESC, f.id DESC`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookFavorite{}
	for rows.Next() {
		var f model.BookFavorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.BookID, &f.CreatedAt, &f.Email); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
