package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/config"
	"github.com/iliyamo/authors-api/internal/database"
	"github.com/iliyamo/authors-api/internal/handler"
	"github.com/iliyamo/authors-api/internal/middleware"
	"github.com/iliyamo/authors-api/internal/queue"
	"github.com/iliyamo/authors-api/internal/repository"
	"github.com/iliyamo/authors-api/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments inject env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	books := repository.NewBookRepo(db)
	companies := repository.NewCompanyRepo(db)
	revoked := repository.NewRevokedTokenRepo(db)

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb == nil {
		log.Printf("redis unavailable, book browse cache disabled")
	}
	cache := middleware.NewBrowseCache(config.LoadCacheConfig(), rdb)
	audit := queue.NewPublisher()

	e := echo.New()
	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Revoked:   revoked,
		Users:     users,
		Auth:      handler.NewAuthHandler(cfg, users, revoked, audit),
		Books:     handler.NewBookHandler(books, cache, audit),
		Companies: handler.NewCompanyHandler(companies),
		Cache:     cache,
	})

	go queue.StartAuditConsumer()
	go pruneRevokedTokens(revoked, cfg.AccessTTLMin)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// pruneRevokedTokens garbage-collects ledger rows whose tokens expired long
// ago. Correctness never depends on it: an expired token fails validation
// before the ledger is consulted.
func pruneRevokedTokens(revoked *repository.RevokedTokenRepo, accessTTLMin int) {
	ttl := time.Duration(accessTTLMin) * time.Minute
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := revoked.PruneBefore(ctx, time.Now().UTC().Add(-2*ttl))
		cancel()
		if err != nil {
			log.Printf("revocation ledger prune failed: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("revocation ledger pruned %d expired entries", n)
		}
	}
}
