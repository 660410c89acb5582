package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"englearn/internal/app"
	"englearn/internal/auth"
	"englearn/internal/cache"
	"englearn/internal/db"
	"englearn/internal/logger"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.UsesDevJWTSecret() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.OpenPostgres(ctx, db.PostgresConfig{
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime(),
	})
	if err != nil {
		log.Fatal("database error", "error", err)
	}
	defer dbConn.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, dbConn); err != nil {
			log.Fatal("migration failed", "error", err)
		}
	}

	if cfg.BootstrapAdminEmail != "" {
		created, err := auth.NewService(dbConn, auth.ServiceConfig{JWTSecret: cfg.JWTSecret}).
			EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			log.Fatal("bootstrap admin failed", "error", err)
		}
		if created {
			log.Info("bootstrap admin created", "email", cfg.BootstrapAdminEmail)
		}
	}

	deps := app.Deps{DB: dbConn, Log: log}
	if cfg.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "englearn:",
			TTL:      cfg.DetailCacheTTL(),
		})
		if err != nil {
			log.Warn("redis unavailable, quiz detail cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer store.Close()
			deps.DetailCache = store
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	log.Info("englearn web listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", "error", err)
	}
	log.Info("server stopped")
}
