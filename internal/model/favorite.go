package model

import "time"

// Favorite is the unique (user, book) bookmark relation.
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFavorite is a favorite joined with the book summary, as listed on a
// user's favorites page.
type UserFavorite struct {
	Favorite
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// BookFavorite is a favorite joined with the user email, as listed for a book.
type BookFavorite struct {
	Favorite
	Email string `json:"email"`
}
