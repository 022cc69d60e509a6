// Package repository contains data access logic separated from HTTP handlers.
// This file holds the book queries: paginated listing and search, lookup,
// creation, partial update and deletion.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/elibrary/internal/model"
)

// BookRepo encapsulates all database queries related to books.
type BookRepo struct {
	db *sql.DB // db is the shared connection pool
}

// NewBookRepo constructs a BookRepo with the provided DB handle.
func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

// bookSelect returns books with the uploader's email joined in.  The
// uploader may have been deleted, hence the LEFT JOIN.
const bookSelect = `SELECT b.id, b.title, b.description, b.image_url, b.uploaded_by,
       u.email, b.created_at, b.updated_at
  FROM books b
  LEFT JOIN users u ON u.id = b.uploaded_by`

const bookSearchCond = ` WHERE (LOWER(b.title) LIKE ? OR LOWER(COALESCE(b.description, '')) LIKE ?)`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (model.Book, error) {
	var (
		b                          model.Book
		desc, img, owner, ownerEml sql.NullString
	)
	if err := s.Scan(&b.ID, &b.Title, &desc, &img, &owner, &ownerEml, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	b.Description = nullable(desc)
	b.ImageURL = nullable(img)
	b.UploadedBy = nullable(owner)
	b.UploadedByEmail = nullable(ownerEml)
	return b, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// List returns one page of books ordered newest first.  A non-empty query
// restricts the result to books whose title or description contains it,
// case-insensitively.  A page past the end yields an empty slice.
func (r *BookRepo) List(ctx context.Context, query string, page, limit int) (model.Page[model.Book], error) {
	out := model.Page[model.Book]{Items: []model.Book{}, Page: page, Limit: limit}

	cond := ""
	var args []any
	if query != "" {
		p := likePattern(query)
		cond = bookSearchCond
		args = append(args, p, p)
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books b"+cond, args...).Scan(&out.Total); err != nil {
		return out, err
	}

	dataArgs := append(append([]any{}, args...), limit, out.Offset())
	rows, err := r.db.QueryContext(ctx,
		bookSelect+cond+" ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?", dataArgs...)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, b)
	}
	return out, rows.Err()
}

// GetByID fetches a book by id.  It returns ErrNotFound if no row is found.
func (r *BookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, bookSelect+" WHERE b.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Create inserts a new book owned by ownerID and returns the stored row.
func (r *BookRepo) Create(ctx context.Context, in model.BookInput, ownerID string) (*model.Book, error) {
	id := uuid.NewString()
	const q = "INSERT INTO books (id, title, description, image_url, uploaded_by) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, q, id, in.Title, in.Description, in.ImageURL, ownerID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update applies the non-nil fields of p.  Omitted fields keep their value:
// a NULL parameter makes COALESCE fall back to the stored column, so the
// statement text never depends on which fields were sent.
func (r *BookRepo) Update(ctx context.Context, id string, p model.BookPatch) (*model.Book, error) {
	if p.Empty() {
		return nil, ErrNoFields
	}
	const q = `UPDATE books
	              SET title       = COALESCE(?, title),
	                  description = COALESCE(?, description),
	                  image_url   = COALESCE(?, image_url),
	                  updated_at  = CURRENT_TIMESTAMP(6)
	            WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, p.Title, p.Description, p.ImageURL, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a book; favorites referencing it go with it (ON DELETE
// CASCADE).  It returns ErrNotFound when nothing was deleted.
func (r *BookRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
