package model

import "time"

// Role values stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash never leaves the server: it is excluded from JSON.
//
// Fields:
//
//	ID           – UUID primary key, immutable.
//	Email        – unique, trimmed and lower-cased address.
//	PasswordHash – bcrypt hash of the password.
//	Role         – RoleUser or RoleAdmin.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserPatch lists the profile fields a user may change.  A nil field is
// left untouched.
type UserPatch struct {
	Email *string
}

// Empty reports whether the patch carries no field at all.
func (p UserPatch) Empty() bool { return p.Email == nil }

// Identity is the verified snapshot embedded in a bearer token.  It is as
// fresh as the moment the token was issued.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
