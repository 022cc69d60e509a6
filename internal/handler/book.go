package handler

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/middleware"
	"github.com/iliyamo/elibrary/internal/model"
)

// Catalog is the book and favorites API used by the handlers.
type Catalog interface {
	ListBooks(ctx context.Context, query string, page, limit int) (model.Page[model.Book], error)
	SearchBooks(ctx context.Context, query string, page, limit int) (model.Page[model.Book], error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	CreateBook(ctx context.Context, actor model.Identity, in model.BookInput) (*model.Book, error)
	UpdateBook(ctx context.Context, actor model.Identity, id string, p model.BookPatch) (*model.Book, error)
	DeleteBook(ctx context.Context, actor model.Identity, id string) error
	AddFavorite(ctx context.Context, actor model.Identity, bookID string) (*model.Favorite, error)
	RemoveFavorite(ctx context.Context, actor model.Identity, bookID string) error
	UserFavorites(ctx context.Context, userID string, page, limit int) (model.Page[model.UserFavorite], error)
	BookFavorites(ctx context.Context, bookID string) ([]model.BookFavorite, error)
}

// ImageStore keeps uploaded cover images.
type ImageStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(publicURL string) error
}

// BookHandler serves /api/books.
type BookHandler struct {
	Catalog Catalog
	Images  ImageStore
	Logger  *slog.Logger
}

func NewBookHandler(catalog Catalog, images ImageStore, logger *slog.Logger) *BookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookHandler{Catalog: catalog, Images: images, Logger: logger}
}

// pageParams reads ?page and ?limit.  Missing or malformed values become
// 0 and are normalised by the service.
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

// List returns a page of books; ?q narrows it like Search.
func (h *BookHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	res, err := h.Catalog.ListBooks(c.Request().Context(), c.QueryParam("q"), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res.Items, "pagination": pageOf(res)})
}

// Search requires ?q.
func (h *BookHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return newAPIError(http.StatusBadRequest, CodeValidation, "Search query is required")
	}
	page, limit := pageParams(c)
	res, err := h.Catalog.SearchBooks(c.Request().Context(), q, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res.Items, "pagination": pageOf(res)})
}

// Get returns one book.
func (h *BookHandler) Get(c echo.Context) error {
	b, err := h.Catalog.GetBook(c.Request().Context(), c.Param("id"))
	if err != nil {
		return notFound(err, "Book not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": b})
}

// bookFields are the writable text fields of a book.  nil means the
// client did not send the field at all.
type bookFields struct {
	Title       *string `json:"title" validate:"omitnil,max=255"`
	Description *string `json:"description" validate:"omitnil,max=10000"`
}

// readBookFields accepts multipart/form-data (with an optional `image`
// part) or a JSON body.
func readBookFields(c echo.Context) (bookFields, *multipart.FileHeader, error) {
	var f bookFields
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return f, nil, newAPIError(http.StatusBadRequest, CodeBadRequest, "Invalid multipart form")
		}
		if v, ok := form.Value["title"]; ok && len(v) > 0 {
			f.Title = &v[0]
		}
		if v, ok := form.Value["description"]; ok && len(v) > 0 {
			f.Description = &v[0]
		}
		var fh *multipart.FileHeader
		if files := form.File["image"]; len(files) > 0 {
			fh = files[0]
		}
		return f, fh, c.Validate(&f)
	}
	if c.Request().ContentLength == 0 {
		return f, nil, nil
	}
	return f, nil, bindAndValidate(c, &f)
}

func (h *BookHandler) saveImage(fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	url, err := h.Images.Save(fh)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func (h *BookHandler) discardImage(url *string) {
	if url == nil {
		return
	}
	if err := h.Images.Remove(*url); err != nil {
		h.Logger.Warn("discard uploaded cover", slog.String("image_url", *url), slog.String("error", err.Error()))
	}
}

// Create stores a new book.  Admin only.
func (h *BookHandler) Create(c echo.Context) error {
	f, fh, err := readBookFields(c)
	if err != nil {
		return err
	}
	if f.Title == nil || strings.TrimSpace(*f.Title) == "" {
		return &apiError{
			Status:  http.StatusBadRequest,
			Code:    CodeValidation,
			Message: "Validation failed",
			Details: []FieldError{{Field: "title", Message: "title is required"}},
		}
	}
	img, err := h.saveImage(fh)
	if err != nil {
		return err
	}
	actor, _ := middleware.IdentityFrom(c)
	b, err := h.Catalog.CreateBook(c.Request().Context(), actor, model.BookInput{
		Title:       *f.Title,
		Description: f.Description,
		ImageURL:    img,
	})
	if err != nil {
		h.discardImage(img)
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Book created successfully", "data": b})
}

// Update applies a partial update; fields not sent keep their value.
// Admin only.
func (h *BookHandler) Update(c echo.Context) error {
	f, fh, err := readBookFields(c)
	if err != nil {
		return err
	}
	img, err := h.saveImage(fh)
	if err != nil {
		return err
	}
	actor, _ := middleware.IdentityFrom(c)
	b, err := h.Catalog.UpdateBook(c.Request().Context(), actor, c.Param("id"), model.BookPatch{
		Title:       f.Title,
		Description: f.Description,
		ImageURL:    img,
	})
	if err != nil {
		h.discardImage(img)
		return notFound(err, "Book not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Book updated successfully", "data": b})
}

// Delete removes a book.  Admin only.
func (h *BookHandler) Delete(c echo.Context) error {
	actor, _ := middleware.IdentityFrom(c)
	if err := h.Catalog.DeleteBook(c.Request().Context(), actor, c.Param("id")); err != nil {
		return notFound(err, "Book not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Book deleted successfully"})
}

// AddFavorite marks the book for the caller.
func (h *BookHandler) AddFavorite(c echo.Context) error {
	actor, _ := middleware.IdentityFrom(c)
	fav, err := h.Catalog.AddFavorite(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return notFound(err, "Book not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Book added to favorites", "data": fav})
}

// RemoveFavorite unmarks the book for the caller.
func (h *BookHandler) RemoveFavorite(c echo.Context) error {
	actor, _ := middleware.IdentityFrom(c)
	err := h.Catalog.RemoveFavorite(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return notFound(err, "Favorite not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Book removed from favorites"})
}

// Favorites lists who marked the book.
func (h *BookHandler) Favorites(c echo.Context) error {
	favs, err := h.Catalog.BookFavorites(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": favs})
}
