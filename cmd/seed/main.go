// Command seed creates a demo admin, a demo user, a few books and two
// favorites.  It does nothing when the admin account already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/elibrary/internal/config"
	"github.com/iliyamo/elibrary/internal/database"
	"github.com/iliyamo/elibrary/internal/logger"
	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/repository"
	"github.com/iliyamo/elibrary/internal/utils"
)

const (
	adminEmail   = "admin@example.com"
	userEmail    = "user@example.com"
	demoPassword = "Admin123"
)

var sampleBooks = []model.BookInput{
	{Title: "JavaScript: The Good Parts", Description: strPtr("A classic book about JavaScript programming")},
	{Title: "Clean Code", Description: strPtr("A handbook of agile software craftsmanship")},
	{Title: "The Pragmatic Programmer", Description: strPtr("Your journey to mastery")},
}

func strPtr(s string) *string { return &s }

// adminAccounts is the part of the user store the admin check needs.
type adminAccounts interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	SetRole(ctx context.Context, id, role string) error
}

// existingAdmin reports whether the admin account is already present, in
// which case nothing else is seeded.  An account registered through the
// API under the admin email is promoted in place.
func existingAdmin(ctx context.Context, users adminAccounts, lg *slog.Logger) (bool, error) {
	u, err := users.GetByEmail(ctx, adminEmail)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	if u.IsAdmin() {
		lg.Info("admin user already exists, skipping seed")
		return true, nil
	}
	if err := users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
		return false, fmt.Errorf("promote admin: %w", err)
	}
	lg.Info("promoted existing account to admin, skipping seed", "email", u.Email)
	return true, nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	lg := logger.SetupDefault(os.Stdout, cfg.LogLevel)

	opts := database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	}
	db, err := database.Open(opts)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(opts); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users := repository.NewUserRepo(db)
	done, err := existingAdmin(ctx, users, lg)
	if err != nil {
		log.Fatalf("admin check: %v", err)
	}
	if done {
		return
	}

	hash, err := utils.HashPassword(demoPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	admin := &model.User{Email: adminEmail, PasswordHash: hash, Role: model.RoleAdmin}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}
	reader := &model.User{Email: userEmail, PasswordHash: hash, Role: model.RoleUser}
	if err := users.Create(ctx, reader); err != nil && !errors.Is(err, repository.ErrEmailExists) {
		log.Fatalf("create user: %v", err)
	} else if err != nil {
		if reader, err = users.GetByEmail(ctx, userEmail); err != nil {
			log.Fatalf("lookup user: %v", err)
		}
	}
	lg.Info("users seeded", "admin", admin.Email, "user", reader.Email)

	books := repository.NewBookRepo(db)
	var ids []string
	for _, in := range sampleBooks {
		b, err := books.Create(ctx, in, admin.ID)
		if err != nil {
			log.Fatalf("create book %q: %v", in.Title, err)
		}
		ids = append(ids, b.ID)
	}
	lg.Info("books seeded", "count", len(ids))

	favorites := repository.NewFavoriteRepo(db)
	for _, id := range ids[:2] {
		if _, err := favorites.Add(ctx, reader.ID, id); err != nil && !errors.Is(err, repository.ErrAlreadyFavorite) {
			log.Fatalf("add favorite: %v", err)
		}
	}
	lg.Info("seed complete")
}
