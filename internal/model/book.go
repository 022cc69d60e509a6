package model

import "time"

// Book is a catalog entry.  UploadedBy is nil once the owning user is
// deleted; UploadedByEmail is filled by read queries that join users.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	ImageURL        *string   `json:"image_url"`
	UploadedBy      *string   `json:"uploaded_by"`
	UploadedByEmail *string   `json:"uploaded_by_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookInput carries the fields for a new book.
type BookInput struct {
	Title       string
	Description *string
	ImageURL    *string
}

// BookPatch is a partial update: only non-nil fields are applied, omitted
// fields keep their stored value.
type BookPatch struct {
	Title       *string
	Description *string
	ImageURL    *string
}

// Empty reports whether the patch carries no field at all.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.ImageURL == nil
}

// Page is one slice of an ordered listing plus the size of the full result.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

// Offset returns the number of rows skipped before this page.
func (p Page[T]) Offset() int { return Offset(p.Page, p.Limit) }

// Offset computes (page-1)*limit for a 1-based page.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
