package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/queue"
	"github.com/iliyamo/elibrary/internal/repository"
)

// fakeUsers is an in-memory UserStore keyed by id, with the email index
// enforced the way the unique constraint does.
type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	fail  error
	calls int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	for _, x := range f.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	for _, x := range f.byID {
		if x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (f *fakeUsers) Update(_ context.Context, id string, p model.UserPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	x, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Email != nil {
		for oid, o := range f.byID {
			if oid != id && o.Email == *p.Email {
				return nil, repository.ErrEmailExists
			}
		}
		x.Email = *p.Email
	}
	cp := *x
	return &cp, nil
}

// fakeRevocations mimics token_blacklist.
type fakeRevocations struct {
	mu      sync.Mutex
	rows    map[string]time.Time
	lookErr error
}

func newFakeRevocations() *fakeRevocations { return &fakeRevocations{rows: map[string]time.Time{}} }

func (f *fakeRevocations) Revoke(_ context.Context, h string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.rows[h]; !ok || exp.After(cur) {
		f.rows[h] = exp
	}
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, h string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookErr != nil {
		return false, f.lookErr
	}
	exp, ok := f.rows[h]
	return ok && exp.After(now), nil
}

func (f *fakeRevocations) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, exp := range f.rows {
		if !exp.After(now) {
			delete(f.rows, h)
			n++
		}
	}
	return n, nil
}

// fakeBooks keeps books in insertion order; newer books list first.
type fakeBooks struct {
	mu    sync.Mutex
	items []*model.Book
	seq   int
}

func (f *fakeBooks) List(_ context.Context, query string, page, limit int) (model.Page[model.Book], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := model.Page[model.Book]{Items: []model.Book{}, Page: page, Limit: limit}
	var matched []model.Book
	q := strings.ToLower(query)
	for i := len(f.items) - 1; i >= 0; i-- {
		b := f.items[i]
		desc := ""
		if b.Description != nil {
			desc = *b.Description
		}
		if q == "" || strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(desc), q) {
			matched = append(matched, *b)
		}
	}
	out.Total = int64(len(matched))
	off := out.Offset()
	if off < len(matched) {
		end := off + limit
		if end > len(matched) {
			end = len(matched)
		}
		out.Items = append(out.Items, matched[off:end]...)
	}
	return out, nil
}

func (f *fakeBooks) find(id string) (int, *model.Book) {
	for i, b := range f.items {
		if b.ID == id {
			return i, b
		}
	}
	return -1, nil
}

func (f *fakeBooks) GetByID(_ context.Context, id string) (*model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, b := f.find(id)
	if b == nil {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBooks) Create(_ context.Context, in model.BookInput, ownerID string) (*model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	owner := ownerID
	b := &model.Book{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		UploadedBy:  &owner,
		CreatedAt:   time.Unix(int64(f.seq), 0).UTC(),
	}
	b.UpdatedAt = b.CreatedAt
	f.items = append(f.items, b)
	cp := *b
	return &cp, nil
}

func (f *fakeBooks) Update(_ context.Context, id string, p model.BookPatch) (*model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Empty() {
		return nil, repository.ErrNoFields
	}
	_, b := f.find(id)
	if b == nil {
		return nil, repository.ErrNotFound
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = p.Description
	}
	if p.ImageURL != nil {
		b.ImageURL = p.ImageURL
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBooks) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, _ := f.find(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

// fakeFavorites enforces the (user, book) uniqueness and the book FK.
type fakeFavorites struct {
	mu    sync.Mutex
	books *fakeBooks
	rows  []model.Favorite
}

func (f *fakeFavorites) Add(ctx context.Context, userID, bookID string) (*model.Favorite, error) {
	if _, err := f.books.GetByID(ctx, bookID); err != nil {
		return nil, repository.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.BookID == bookID {
			return nil, repository.ErrAlreadyFavorite
		}
	}
	fav := model.Favorite{ID: uuid.NewString(), UserID: userID, BookID: bookID, CreatedAt: time.Now().UTC()}
	f.rows = append(f.rows, fav)
	return &fav, nil
}

func (f *fakeFavorites) Remove(_ context.Context, userID, bookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.UserID == userID && r.BookID == bookID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeFavorites) ListByUser(ctx context.Context, userID string, page, limit int) (model.Page[model.UserFavorite], error) {
	f.mu.Lock()
	var mine []model.Favorite
	for _, r := range f.rows {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	f.mu.Unlock()
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })

	out := model.Page[model.UserFavorite]{Items: []model.UserFavorite{}, Page: page, Limit: limit, Total: int64(len(mine))}
	off := out.Offset()
	for i := off; i < len(mine) && i < off+limit; i++ {
		b, _ := f.books.GetByID(ctx, mine[i].BookID)
		uf := model.UserFavorite{Favorite: mine[i]}
		if b != nil {
			uf.Title, uf.Description, uf.ImageURL = b.Title, b.Description, b.ImageURL
		}
		out.Items = append(out.Items, uf)
	}
	return out, nil
}

func (f *fakeFavorites) ListByBook(_ context.Context, bookID string) ([]model.BookFavorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.BookFavorite{}
	for _, r := range f.rows {
		if r.BookID == bookID {
			out = append(out, model.BookFavorite{Favorite: r})
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.CatalogEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.CatalogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type countingCache struct {
	n   int
	err error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.n++
	return c.err
}

type recordingFiles struct{ removed []string }

func (r *recordingFiles) Remove(url string) error {
	r.removed = append(r.removed, url)
	return errors.New("already gone")
}

// countingMetrics records calls of interest; the rest are ignored.
type countingMetrics struct {
	registrations int
	logins        map[bool]int
	rejected      map[string]int
	revoked       int
	purged        int64
	books         map[string]int
	favorites     map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		logins:    map[bool]int{},
		rejected:  map[string]int{},
		books:     map[string]int{},
		favorites: map[string]int{},
	}
}

func (m *countingMetrics) RecordRegistration() { m.registrations++ }
func (m *countingMetrics) RecordLogin(ok bool) { m.logins[ok]++ }
func (m *countingMetrics) RecordTokenRejected(r string) { m.rejected[r]++ }
func (m *countingMetrics) RecordTokenRevoked() { m.revoked++ }
func (m *countingMetrics) RecordRevocationsPurged(n int64) { m.purged += n }
func (m *countingMetrics) RecordBookMutation(op string) { m.books[op]++ }
func (m *countingMetrics) RecordFavoriteMutation(op string) { m.favorites[op]++ }

func strPtr(s string) *string { return &s }
