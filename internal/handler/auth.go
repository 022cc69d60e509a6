package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/middleware"
	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/service"
)

// Authenticator is the credential store and session API used by the auth
// and profile handlers.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Logout(ctx context.Context, rawToken string) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, p model.UserPatch) (*model.User, error)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=72,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResp struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sess, err := h.Auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sessionResp{
		Success:   true,
		Message:   "User registered successfully",
		Token:     sess.Token.Token,
		ExpiresAt: sess.Token.Exp,
		User:      viewUser(sess.User),
	})
}

// Login verifies credentials and issues a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sess, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp{
		Success:   true,
		Message:   "Login successful",
		Token:     sess.Token.Token,
		ExpiresAt: sess.Token.Exp,
		User:      viewUser(sess.User),
	})
}

// Logout revokes the bearer token of the request.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Auth.Logout(c.Request().Context(), middleware.TokenFrom(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logout successful"})
}

// Me returns the account behind the token.
func (h *AuthHandler) Me(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	u, err := h.Auth.GetUser(c.Request().Context(), id.UserID)
	if err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": viewUser(u)})
}
