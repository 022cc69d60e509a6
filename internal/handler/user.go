package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/middleware"
	"github.com/iliyamo/elibrary/internal/model"
)

// UserHandler serves /api/users.
type UserHandler struct {
	Auth    Authenticator
	Catalog Catalog
}

func NewUserHandler(auth Authenticator, catalog Catalog) *UserHandler {
	return &UserHandler{Auth: auth, Catalog: catalog}
}

type profileReq struct {
	Email *string `json:"email" validate:"omitnil,email,max=255"`
}

// Profile returns the caller's account.
func (h *UserHandler) Profile(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	u, err := h.Auth.GetUser(c.Request().Context(), id.UserID)
	if err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": viewUser(u)})
}

// UpdateProfile changes the caller's email.  Only the fields present in
// the body are touched.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	id, _ := middleware.IdentityFrom(c)
	u, err := h.Auth.UpdateProfile(c.Request().Context(), id.UserID, model.UserPatch{Email: req.Email})
	if err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Profile updated successfully",
		"data":    viewUser(u),
	})
}

// Favorites lists the caller's favorite books.
func (h *UserHandler) Favorites(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)
	page, limit := pageParams(c)
	res, err := h.Catalog.UserFavorites(c.Request().Context(), id.UserID, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"data":       res.Items,
		"pagination": pageOf(res),
	})
}
