package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/elibrary/internal/config"
	"github.com/iliyamo/elibrary/internal/database"
	"github.com/iliyamo/elibrary/internal/handler"
	"github.com/iliyamo/elibrary/internal/logger"
	"github.com/iliyamo/elibrary/internal/metrics"
	"github.com/iliyamo/elibrary/internal/middleware"
	"github.com/iliyamo/elibrary/internal/queue"
	"github.com/iliyamo/elibrary/internal/repository"
	"github.com/iliyamo/elibrary/internal/router"
	"github.com/iliyamo/elibrary/internal/service"
	"github.com/iliyamo/elibrary/internal/storage"
	"github.com/iliyamo/elibrary/internal/worker/purge"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	lg := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	started := time.Now()

	dbOpts := database.Options{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}
	db, err := database.Open(dbOpts)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if cfg.RunMigrations {
		if err := database.RunMigrations(dbOpts); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		lg.Info("migrations applied")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable; response cache and revocation mirror disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	users := repository.NewUserRepo(db)
	revocations := service.NewCachedRevocations(repository.NewTokenRepo(db), rdb, lg)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, revocations, rec)
	auth := service.NewAuthService(users, tokens, cfg.BcryptCost, rec)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	var publisher service.EventPublisher = service.NopPublisher{}
	var rabbit *service.RabbitPublisher
	if cfg.RabbitURL != "" {
		rabbit = service.NewRabbitPublisher(cfg.RabbitURL, lg)
		publisher = rabbit
	}

	images, err := storage.NewLocalStore(cfg.UploadDir, "/uploads", cfg.UploadMaxBytes)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	catalog := service.NewCatalogService(
		repository.NewBookRepo(db),
		repository.NewFavoriteRepo(db),
		service.CatalogOptions{
			Events:  publisher,
			Cache:   cache,
			Files:   images,
			Metrics: rec,
			Logger:  lg,
		},
	)

	e := router.New(router.Deps{
		Logger:         lg,
		HideInternal:   cfg.IsProduction(),
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.UploadMaxBytes,
		RequestTimeout: cfg.DBQueryTimeout,
		UploadDir:      cfg.UploadDir,
		Metrics:        metrics.Handler(reg),
		Tokens:         tokens,
		Cache:          cache,
		Health:         &handler.HealthHandler{DB: db, Env: cfg.Env, Started: started},
		Auth:           handler.NewAuthHandler(auth),
		Books:          handler.NewBookHandler(catalog, images, lg),
		Users:          handler.NewUserHandler(auth, catalog),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	job := purge.NewJob(tokens, lg)
	job.Interval = cfg.PurgeInterval
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Start(ctx)
	}()

	if cfg.RabbitURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.StartCatalogConsumer(ctx, cfg.RabbitURL, cfg.CatalogLogDir, lg); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("catalog consumer stopped", "err", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", "err", err)
	}
	wg.Wait()

	if rabbit != nil {
		_ = rabbit.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = db.Close()
	lg.Info("stopped")
}
