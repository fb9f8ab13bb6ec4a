package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	fbauth "github.com/bionicotaku/lingo-utils-fbauth"
	"github.com/bionicotaku/lingo-utils-fbauth/ginauth"
	"github.com/bionicotaku/lingo-utils-fbauth/internal/envfile"
	"github.com/bionicotaku/lingo-utils-fbauth/users"
)

func main() {
	addr := pflag.String("addr", ":8080", "HTTP listen address")
	envDir := pflag.String("env-dir", ".", "Directory searched for .env files")
	dsn := pflag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL DSN; users are kept in memory when empty")
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Config ---
	res, err := envfile.LoadFirst(*envDir)
	switch {
	case err != nil:
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	case !res.Loaded():
		logger.Warn("no environment file found; Firebase settings must come from the process environment")
	case res.FromExample():
		logger.Warn("loaded environment from template; copy it to .env and supply real secrets", "file", res.Path)
	default:
		logger.Info("loaded environment file", "file", res.Path, "keys", len(res.Set))
	}

	cfg, err := fbauth.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	cfg.Check(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Verifier ---
	keys, err := cfg.KeySource(ctx)
	if err != nil {
		logger.Error("failed to create key source", "error", err)
		os.Exit(1)
	}
	if jwks, ok := keys.(*fbauth.JWKSKeySource); ok {
		if err := jwks.Refresh(ctx); err != nil {
			logger.Warn("jwks warmup failed", "error", err)
		}
	}
	verifier, err := fbauth.NewVerifier(fbauth.VerifierConfig{
		ProjectID:      cfg.ProjectID,
		Keys:           keys,
		RequireProject: cfg.RequireProject,
	})
	if err != nil {
		logger.Error("failed to create verifier", "error", err)
		os.Exit(1)
	}

	// --- Users ---
	var store users.Store
	if *dsn != "" {
		db, err := users.OpenPostgres(ctx, *dsn)
		if err != nil {
			logger.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := users.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory user store")
		store = users.NewMemoryStore()
	}

	// --- HTTP ---
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.Use(ginauth.Authenticate(ginauth.Options{
		Verifier:      verifier,
		Users:         users.NewService(store),
		AllowMockAuth: cfg.AllowMockAuth,
		Logger:        logger,
	}))
	ginauth.Register(r.Group("/api/auth"), cfg.Client)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
