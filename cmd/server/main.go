package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"booklibrary/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"booklibrary/internal/auth"
	"booklibrary/internal/cache"
	"booklibrary/internal/config"
	"booklibrary/internal/db"
	"booklibrary/internal/handler"
	"booklibrary/internal/logging"
	"booklibrary/internal/metrics"
	"booklibrary/internal/repository"
	"booklibrary/internal/router"
	"booklibrary/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Book Library API
// @version 1.0
// @description Library backend with JWT accounts, a searchable book catalog and loan tracking.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg)
	if err != nil {
		return err
	}

	if cfg.ResetDB {
		slog.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	store := repository.NewStore(gormDB)
	if n, err := store.Tokens().DeleteExpired(ctx, time.Now()); err != nil {
		slog.Warn("failed to purge expired blacklisted tokens", "error", err)
	} else if n > 0 {
		slog.Info("purged expired blacklisted tokens", "count", n)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "error", err)
	}

	collector := metrics.New()

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(store.Tokens(), cacheClient)

	// Initialize services
	authService := service.NewAuthService(store.Users(), jwtService, tokenStore)
	bookService := service.NewBookService(store.Books(), cacheClient, cfg.PageSize)
	loanService := service.NewLoanService(store, cacheClient, collector, cfg.FineRate)
	catalogService := service.NewCatalogService(store, cacheClient)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		JWT:     jwtService,
		Users:   store.Users(),
		Metrics: collector,
		Logger:  slog.Default(),
		Auth:    handler.NewAuthHandler(authService),
		Books:   handler.NewBookHandler(bookService),
		Loans:   handler.NewLoanHandler(loanService),
		Admin:   handler.NewAdminHandler(catalogService, loanService),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	slog.Info("swagger documentation available", "url", swaggerURL(cfg))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		slog.Info("starting server", "addr", addr, "db_driver", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
