package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/elibrary/internal/metrics"
	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/queue"
)

// ErrValidation marks input the service refuses regardless of the caller.
var ErrValidation = errors.New("validation failed")

// Pagination bounds.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// NormalizePage clamps a requested page and limit: page below 1 becomes 1,
// a non-positive limit becomes DefaultPageLimit and limit is capped at
// MaxPageLimit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// BookStore is the book persistence used by CatalogService.
type BookStore interface {
	List(ctx context.Context, query string, page, limit int) (model.Page[model.Book], error)
	GetByID(ctx context.Context, id string) (*model.Book, error)
	Create(ctx context.Context, in model.BookInput, ownerID string) (*model.Book, error)
	Update(ctx context.Context, id string, p model.BookPatch) (*model.Book, error)
	Delete(ctx context.Context, id string) error
}

// FavoriteStore is the favorites persistence used by CatalogService.
type FavoriteStore interface {
	Add(ctx context.Context, userID, bookID string) (*model.Favorite, error)
	Remove(ctx context.Context, userID, bookID string) error
	ListByUser(ctx context.Context, userID string, page, limit int) (model.Page[model.UserFavorite], error)
	ListByBook(ctx context.Context, bookID string) ([]model.BookFavorite, error)
}

// EventPublisher delivers catalog events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.CatalogEvent) error
}

// CacheInvalidator drops cached public book responses.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// FileRemover deletes a stored cover image given its public URL.
type FileRemover interface {
	Remove(publicURL string) error
}

// CatalogOptions carries the optional collaborators of CatalogService.
// Nil members are replaced with no-ops.
type CatalogOptions struct {
	Events  EventPublisher
	Cache   CacheInvalidator
	Files   FileRemover
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// CatalogService implements book browsing, admin book management and
// favorites.  Side effects after a successful write (cache drop, event,
// stale cover removal) never fail the write itself.
type CatalogService struct {
	books     BookStore
	favorites FavoriteStore
	events    EventPublisher
	cache     CacheInvalidator
	files     FileRemover
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewCatalogService wires the catalog.
func NewCatalogService(books BookStore, favorites FavoriteStore, opts CatalogOptions) *CatalogService {
	s := &CatalogService{
		books:     books,
		favorites: favorites,
		events:    opts.Events,
		cache:     opts.Cache,
		files:     opts.Files,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if s.events == nil {
		s.events = NopPublisher{}
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.files == nil {
		s.files = nopFiles{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ListBooks returns one page of books, newest first, optionally filtered.
func (s *CatalogService) ListBooks(ctx context.Context, query string, page, limit int) (model.Page[model.Book], error) {
	page, limit = NormalizePage(page, limit)
	return s.books.List(ctx, strings.TrimSpace(query), page, limit)
}

// SearchBooks is ListBooks with a mandatory query.
func (s *CatalogService) SearchBooks(ctx context.Context, query string, page, limit int) (model.Page[model.Book], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.Page[model.Book]{}, ErrValidation
	}
	page, limit = NormalizePage(page, limit)
	return s.books.List(ctx, query, page, limit)
}

// GetBook loads one book.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return s.books.GetByID(ctx, id)
}

// CreateBook stores a book owned by actor.
func (s *CatalogService) CreateBook(ctx context.Context, actor model.Identity, in model.BookInput) (*model.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, ErrValidation
	}
	b, err := s.books.Create(ctx, in, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordBookMutation("create")
	s.afterBookWrite(ctx, queue.EventBookCreated, b.ID, b.Title, actor)
	return b, nil
}

// UpdateBook applies a partial update.  A replaced cover file is removed
// once the new row is stored.
func (s *CatalogService) UpdateBook(ctx context.Context, actor model.Identity, id string, p model.BookPatch) (*model.Book, error) {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return nil, ErrValidation
		}
		p.Title = &t
	}
	var oldImage *string
	if p.ImageURL != nil {
		prev, err := s.books.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		oldImage = prev.ImageURL
	}
	b, err := s.books.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if oldImage != nil && *oldImage != *p.ImageURL {
		s.removeFile(*oldImage)
	}
	s.metrics.RecordBookMutation("update")
	s.afterBookWrite(ctx, queue.EventBookUpdated, b.ID, b.Title, actor)
	return b, nil
}

// DeleteBook removes a book, its favorites and its cover file.
func (s *CatalogService) DeleteBook(ctx context.Context, actor model.Identity, id string) error {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	if b.ImageURL != nil {
		s.removeFile(*b.ImageURL)
	}
	s.metrics.RecordBookMutation("delete")
	s.afterBookWrite(ctx, queue.EventBookDeleted, b.ID, b.Title, actor)
	return nil
}

// AddFavorite bookmarks bookID for actor.
func (s *CatalogService) AddFavorite(ctx context.Context, actor model.Identity, bookID string) (*model.Favorite, error) {
	f, err := s.favorites.Add(ctx, actor.UserID, bookID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFavoriteMutation("add")
	s.publish(ctx, queue.EventFavoriteAdded, bookID, "", actor)
	return f, nil
}

// RemoveFavorite deletes the (actor, bookID) bookmark.
func (s *CatalogService) RemoveFavorite(ctx context.Context, actor model.Identity, bookID string) error {
	if err := s.favorites.Remove(ctx, actor.UserID, bookID); err != nil {
		return err
	}
	s.metrics.RecordFavoriteMutation("remove")
	s.publish(ctx, queue.EventFavoriteRemoved, bookID, "", actor)
	return nil
}

// UserFavorites lists the books a user marked, most recent first.
func (s *CatalogService) UserFavorites(ctx context.Context, userID string, page, limit int) (model.Page[model.UserFavorite], error) {
	page, limit = NormalizePage(page, limit)
	return s.favorites.ListByUser(ctx, userID, page, limit)
}

// BookFavorites lists the users who marked a book.
func (s *CatalogService) BookFavorites(ctx context.Context, bookID string) ([]model.BookFavorite, error) {
	return s.favorites.ListByBook(ctx, bookID)
}

func (s *CatalogService) afterBookWrite(ctx context.Context, typ, bookID, title string, actor model.Identity) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("book cache invalidation failed", slog.String("error", err.Error()))
	}
	s.publish(ctx, typ, bookID, title, actor)
}

func (s *CatalogService) publish(ctx context.Context, typ, bookID, title string, actor model.Identity) {
	ev := queue.CatalogEvent{
		Type:       typ,
		BookID:     bookID,
		BookTitle:  title,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("catalog event publish failed",
			slog.String("type", typ), slog.String("book_id", bookID), slog.String("error", err.Error()))
	}
}

func (s *CatalogService) removeFile(url string) {
	if err := s.files.Remove(url); err != nil {
		s.logger.Warn("cover removal failed", slog.String("image_url", url), slog.String("error", err.Error()))
	}
}

type nopCache struct{}

func (nopCache) Invalidate(context.Context) error { return nil }

type nopFiles struct{}

func (nopFiles) Remove(string) error { return nil }
