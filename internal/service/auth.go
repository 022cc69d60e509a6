package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/elibrary/internal/metrics"
	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/repository"
	"github.com/iliyamo/elibrary/internal/utils"
)

// ErrInvalidCredentials is returned by Login for an unknown email and for a
// wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the persistence the credential store needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, id string, p model.UserPatch) (*model.User, error)
}

// AuthService implements registration, login, logout and profile updates.
type AuthService struct {
	users   UserStore
	tokens  *TokenService
	cost    int
	metrics metrics.Recorder
}

// NewAuthService wires the credential store.  cost is the bcrypt cost
// used for new password hashes.
func NewAuthService(users UserStore, tokens *TokenService, cost int, rec metrics.Recorder) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{users: users, tokens: tokens, cost: cost, metrics: rec}
}

// Session is the result of a successful register or login.
type Session struct {
	User  *model.User
	Token utils.AccessToken
}

// Register creates a regular user and signs them in.  A taken email
// surfaces as repository.ErrEmailExists straight from the unique index.
func (s *AuthService) Register(ctx context.Context, email, password string) (*Session, error) {
	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        repository.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.metrics.RecordRegistration()
	return s.session(u)
}

// Login verifies credentials and issues a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, repository.NormalizeEmail(email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.BurnPasswordCheck(password, s.cost)
		s.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		s.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	}
	s.metrics.RecordLogin(true)
	return s.session(u)
}

func (s *AuthService) session(u *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(model.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: tok}, nil
}

// Logout revokes the presented token.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	return s.tokens.Revoke(ctx, rawToken)
}

// GetUser loads the current account.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies a partial profile change.  Outstanding tokens keep
// the email they were issued with until they expire.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, p model.UserPatch) (*model.User, error) {
	if p.Empty() {
		return nil, repository.ErrNoFields
	}
	if p.Email != nil {
		e := repository.NormalizeEmail(*p.Email)
		if e == "" {
			return nil, ErrValidation
		}
		p.Email = &e
	}
	return s.users.Update(ctx, id, p)
}
