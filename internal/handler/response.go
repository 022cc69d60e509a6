package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/repository"
	"github.com/iliyamo/elibrary/internal/service"
	"github.com/iliyamo/elibrary/internal/storage"
)

// Error codes carried in the `code` field of failed responses.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeAlreadyFavorite    = "ALREADY_FAVORITE"
	CodeNoFields           = "NO_FIELDS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeRouteNotFound      = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInvalidImage       = "INVALID_IMAGE"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorBody is the envelope of every failed response.
type errorBody struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
	Path    string       `json:"path,omitempty"`
}

// apiError is an error that already knows its HTTP rendering.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details []FieldError
}

func (e *apiError) Error() string { return e.Message }

func newAPIError(status int, code, msg string) *apiError {
	return &apiError{Status: status, Code: code, Message: msg}
}

// notFound maps repository.ErrNotFound to a 404 naming the resource and
// passes every other error through.
func notFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newAPIError(http.StatusNotFound, CodeNotFound, msg)
	}
	return err
}

// mapError is the single translation from domain errors to HTTP.  The
// boolean reports whether the error is unexpected and should be logged.
func mapError(err error) (*apiError, bool) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae, false
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return mapHTTPError(he), he.Code >= http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newAPIError(http.StatusNotFound, CodeNotFound, "Resource not found"), false
	case errors.Is(err, repository.ErrEmailExists):
		return newAPIError(http.StatusBadRequest, CodeEmailExists, "Email already exists"), false
	case errors.Is(err, repository.ErrAlreadyFavorite):
		return newAPIError(http.StatusBadRequest, CodeAlreadyFavorite, "Book already in favorites"), false
	case errors.Is(err, repository.ErrNoFields):
		return newAPIError(http.StatusBadRequest, CodeNoFields, "No fields to update"), false
	case errors.Is(err, service.ErrInvalidCredentials):
		return newAPIError(http.StatusBadRequest, CodeInvalidCredentials, "Invalid email or password"), false
	case errors.Is(err, service.ErrTokenInvalid):
		return newAPIError(http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token"), false
	case errors.Is(err, service.ErrValidation):
		return newAPIError(http.StatusBadRequest, CodeValidation, "Validation failed"), false
	case errors.Is(err, storage.ErrFileTooLarge):
		return newAPIError(http.StatusRequestEntityTooLarge, CodeFileTooLarge, "File too large. Maximum size is 5MB."), false
	case errors.Is(err, storage.ErrInvalidImage):
		return newAPIError(http.StatusBadRequest, CodeInvalidImage, "Only image files are allowed!"), false
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable"), true
	}
	return newAPIError(http.StatusInternalServerError, CodeInternal, err.Error()), true
}

func mapHTTPError(he *echo.HTTPError) *apiError {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	switch he.Code {
	case http.StatusNotFound:
		return newAPIError(he.Code, CodeRouteNotFound, "Route not found")
	case http.StatusMethodNotAllowed:
		return newAPIError(he.Code, CodeMethodNotAllowed, msg)
	case http.StatusUnauthorized:
		return newAPIError(he.Code, CodeUnauthorized, msg)
	case http.StatusForbidden:
		return newAPIError(he.Code, CodeForbidden, msg)
	case http.StatusRequestEntityTooLarge:
		return newAPIError(he.Code, CodeFileTooLarge, "File too large. Maximum size is 5MB.")
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return newAPIError(he.Code, CodeBadRequest, "Invalid request body")
	case http.StatusServiceUnavailable:
		return newAPIError(he.Code, CodeUnavailable, msg)
	}
	if he.Code >= http.StatusInternalServerError {
		return newAPIError(he.Code, CodeInternal, msg)
	}
	return newAPIError(he.Code, CodeBadRequest, msg)
}

// ErrorHandler renders every error returned by handlers or middleware in
// the JSON envelope.  With hideInternal set, 5xx messages are replaced by
// a generic one.
func ErrorHandler(logger *slog.Logger, hideInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ae, unexpected := mapError(err)
		if unexpected {
			logger.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Int("status", ae.Status),
				slog.String("error", err.Error()),
			)
		}
		body := errorBody{Success: false, Error: ae.Message, Code: ae.Code, Details: ae.Details}
		if ae.Status == http.StatusInternalServerError && hideInternal {
			body.Error = "Internal server error"
		}
		if ae.Code == CodeRouteNotFound {
			body.Path = c.Request().URL.RequestURI()
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(ae.Status)
		} else {
			err = c.JSON(ae.Status, body)
		}
		if err != nil {
			logger.Error("write error response", slog.String("error", err.Error()))
		}
	}
}

// pagination is the listing metadata returned next to `data`.
type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func pageOf[T any](p model.Page[T]) pagination {
	return pagination{Page: p.Page, Limit: p.Limit, Total: p.Total}
}

// userView is the public shape of a user.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func viewUser(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
