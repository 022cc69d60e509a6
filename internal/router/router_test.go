package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/elibrary/internal/config"
	"github.com/iliyamo/elibrary/internal/handler"
	"github.com/iliyamo/elibrary/internal/middleware"
	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/repository"
	"github.com/iliyamo/elibrary/internal/service"
)

type memUsers struct {
	mu   sync.Mutex
	rows map[string]*model.User
	seq  int
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.rows {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("u-%d", m.seq)
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.rows {
		if x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.rows[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(ctx context.Context, id string, p model.UserPatch) (*model.User, error) {
	m.mu.Lock()
	if x, ok := m.rows[id]; ok && p.Email != nil {
		x.Email = *p.Email
	}
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

type memRevocations struct {
	mu   sync.Mutex
	rows map[string]time.Time
}

func (m *memRevocations) Revoke(_ context.Context, h string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[h] = exp
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, h string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.rows[h]
	return ok && exp.After(now), nil
}

func (m *memRevocations) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

// noBooks is a catalog with no books; creation echoes the input.
type noBooks struct{}

func (noBooks) ListBooks(_ context.Context, _ string, page, limit int) (model.Page[model.Book], error) {
	page, limit = service.NormalizePage(page, limit)
	return model.Page[model.Book]{Items: []model.Book{}, Page: page, Limit: limit}, nil
}
func (n noBooks) SearchBooks(ctx context.Context, q string, page, limit int) (model.Page[model.Book], error) {
	return n.ListBooks(ctx, q, page, limit)
}
func (noBooks) GetBook(context.Context, string) (*model.Book, error) {
	return nil, repository.ErrNotFound
}
func (noBooks) CreateBook(_ context.Context, actor model.Identity, in model.BookInput) (*model.Book, error) {
	owner := actor.UserID
	return &model.Book{ID: "b-1", Title: in.Title, UploadedBy: &owner}, nil
}
func (noBooks) UpdateBook(context.Context, model.Identity, string, model.BookPatch) (*model.Book, error) {
	return nil, repository.ErrNotFound
}
func (noBooks) DeleteBook(context.Context, model.Identity, string) error {
	return repository.ErrNotFound
}
func (noBooks) AddFavorite(context.Context, model.Identity, string) (*model.Favorite, error) {
	return nil, repository.ErrNotFound
}
func (noBooks) RemoveFavorite(context.Context, model.Identity, string) error {
	return repository.ErrNotFound
}
func (noBooks) UserFavorites(_ context.Context, _ string, page, limit int) (model.Page[model.UserFavorite], error) {
	page, limit = service.NormalizePage(page, limit)
	return model.Page[model.UserFavorite]{Items: []model.UserFavorite{}, Page: page, Limit: limit}, nil
}
func (noBooks) BookFavorites(context.Context, string) ([]model.BookFavorite, error) {
	return []model.BookFavorite{}, nil
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type testServer struct {
	t      *testing.T
	srv    http.Handler
	tokens *service.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := service.NewTokenService("router-test-secret-router-test-secret", time.Hour,
		&memRevocations{rows: map[string]time.Time{}}, nil)
	auth := service.NewAuthService(&memUsers{rows: map[string]*model.User{}}, tokens, bcrypt.MinCost, nil)
	cat := noBooks{}

	e := New(Deps{
		Logger:         logger,
		CORSOrigins:    []string{"http://localhost:5173"},
		MaxUploadBytes: 5 << 20,
		RequestTimeout: time.Second,
		UploadDir:      t.TempDir(),
		Metrics:        http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics\n")) }),
		Tokens:         tokens,
		Cache:          middleware.NewResponseCache(config.CacheConfig{}, nil),
		Health:         &handler.HealthHandler{DB: okPinger{}, Env: "test", Started: time.Now()},
		Auth:           handler.NewAuthHandler(auth),
		Books:          handler.NewBookHandler(cat, nil, logger),
		Users:          handler.NewUserHandler(auth, cat),
	})
	return &testServer{t: t, srv: e, tokens: tokens}
}

func (s *testServer) do(method, path, token, body string) (int, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.srv.ServeHTTP(rec, req)
	var m map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			s.t.Fatalf("%s %s: bad JSON: %v\n%s", method, path, err, rec.Body)
		}
	}
	return rec.Code, m
}

func (s *testServer) register(email string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/auth/register", "",
		`{"email":"`+email+`","password":"Passw0rd","confirmPassword":"Passw0rd"}`)
	if code != http.StatusCreated {
		s.t.Fatalf("register %s = %d %v", email, code, body)
	}
	return body["token"].(string)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.register("reader@example.com")

	code, body := s.do(http.MethodGet, "/api/auth/me", token, "")
	if code != http.StatusOK {
		t.Fatalf("me = %d %v", code, body)
	}
	if u := body["user"].(map[string]any); u["email"] != "reader@example.com" {
		t.Errorf("me user = %v", u)
	}

	if code, _ := s.do(http.MethodPost, "/api/auth/logout", token, ""); code != http.StatusOK {
		t.Fatalf("logout = %d", code)
	}
	code, body = s.do(http.MethodGet, "/api/auth/me", token, "")
	if code != http.StatusUnauthorized || body["code"] != handler.CodeUnauthorized {
		t.Errorf("me after logout = %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/api/auth/login", "", `{"email":"reader@example.com","password":"Passw0rd"}`)
	if code != http.StatusOK {
		t.Fatalf("login = %d %v", code, body)
	}
	if code, _ := s.do(http.MethodGet, "/api/users/profile", body["token"].(string), ""); code != http.StatusOK {
		t.Errorf("profile with fresh token = %d", code)
	}
}

func TestGateRejections(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/auth/me", "/api/users/profile", "/api/users/favorites"} {
		if code, body := s.do(http.MethodGet, path, "", ""); code != http.StatusUnauthorized || body["success"] != false {
			t.Errorf("%s without token = %d %v", path, code, body)
		}
		if code, _ := s.do(http.MethodGet, path, "garbage", ""); code != http.StatusUnauthorized {
			t.Errorf("%s with garbage token = %d", path, code)
		}
	}
}

func TestAdminGate(t *testing.T) {
	s := newTestServer(t)
	userTok := s.register("user@example.com")

	code, body := s.do(http.MethodPost, "/api/books", userTok, `{"title":"Nope"}`)
	if code != http.StatusForbidden || body["code"] != handler.CodeForbidden {
		t.Errorf("user creating a book = %d %v", code, body)
	}
	if code, _ := s.do(http.MethodDelete, "/api/books/b-1", userTok, ""); code != http.StatusForbidden {
		t.Errorf("user deleting a book = %d", code)
	}

	adminTok, err := s.tokens.Issue(model.Identity{UserID: "admin-1", Email: "admin@example.com", Role: model.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	code, body = s.do(http.MethodPost, "/api/books", adminTok.Token, `{"title":"Dune"}`)
	if code != http.StatusCreated {
		t.Fatalf("admin creating a book = %d %v", code, body)
	}
	if d := body["data"].(map[string]any); d["title"] != "Dune" || d["uploaded_by"] != "admin-1" {
		t.Errorf("created = %v", d)
	}
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodGet, "/api/books?page=0&limit=1000", "", "")
	if code != http.StatusOK {
		t.Fatalf("list = %d", code)
	}
	p := body["pagination"].(map[string]any)
	if p["page"] != float64(1) || p["limit"] != float64(100) {
		t.Errorf("pagination = %v", p)
	}

	if code, body := s.do(http.MethodGet, "/api/books/missing", "", ""); code != http.StatusNotFound || body["error"] != "Book not found" {
		t.Errorf("missing book = %d %v", code, body)
	}
	if code, body := s.do(http.MethodGet, "/api/health", "", ""); code != http.StatusOK || body["database"] != "connected" {
		t.Errorf("health = %d %v", code, body)
	}
	if code, _ := s.do(http.MethodGet, "/metrics", "", ""); code != http.StatusOK {
		t.Errorf("metrics = %d", code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(http.MethodGet, "/api/nowhere", "", "")
	if code != http.StatusNotFound || body["error"] != "Route not found" || body["path"] != "/api/nowhere" {
		t.Errorf("unknown route = %d %v", code, body)
	}
}
