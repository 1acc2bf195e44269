// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/shillspot/shillspot/pkg/app/http"
	"github.com/shillspot/shillspot/pkg/auth"
	"github.com/shillspot/shillspot/pkg/blobstore"
	"github.com/shillspot/shillspot/pkg/config"
	feedservice "github.com/shillspot/shillspot/pkg/feed/service"
	"github.com/shillspot/shillspot/pkg/pgutil"
	"github.com/shillspot/shillspot/pkg/ratelimit"
	shillservice "github.com/shillspot/shillspot/pkg/shill/service"
	"github.com/shillspot/shillspot/pkg/shillstore"
	userservice "github.com/shillspot/shillspot/pkg/user/service"
	"github.com/shillspot/shillspot/pkg/userstore"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	secret := os.Getenv(cfg.Auth.SecretEnv)
	if secret == "" {
		return fmt.Errorf(
			"jwt signing secret not set: env=%s (hint: openssl rand -base64 32)",
			cfg.Auth.SecretEnv,
		)
	}
	tokens := auth.NewTokenIssuer([]byte(secret), cfg.Auth.TokenTTL)

	blobs, err := blobstore.NewFSStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return fmt.Errorf("setup upload store: %w", err)
	}

	userStore := userstore.NewStore(db)
	shillStore := shillstore.NewStore(db)

	authMW := auth.Middleware(tokens, userStore, logger)

	var limitMW func(http.Handler) http.Handler
	if cfg.Redis.URL != "" {
		limiter, err := ratelimit.NewLimiter(cfg.Redis.URL, cfg.Redis.AuthLimit, cfg.Redis.AuthWindow, logger)
		if err != nil {
			return fmt.Errorf("setup rate limiter: %w", err)
		}
		defer func() { _ = limiter.Close() }()
		limitMW = limiter.Middleware
		logger.Info("Rate limiting enabled",
			zap.Int("limit", cfg.Redis.AuthLimit),
			zap.Duration("window", cfg.Redis.AuthWindow),
		)
	}

	userService := userservice.NewLog(
		userservice.NewService(userStore, blobs, tokens, logger, cfg.Auth.BcryptCost),
		logger,
	)
	shillService := shillservice.NewLog(
		shillservice.NewService(shillStore, userStore, logger),
		logger,
	)
	feedService, err := feedservice.NewService(
		userStore,
		shillStore,
		feedservice.Options{Limit: cfg.Feed.Limit},
		logger,
	)
	if err != nil {
		return fmt.Errorf("setup feed service: %w", err)
	}

	router := s.setupRouter(userService, shillService, feedService, authMW, limitMW, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) setupRouter(
	userService userservice.Service,
	shillService shillservice.Service,
	feedService feedservice.Service,
	authMW, limitMW func(http.Handler) http.Handler,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	feedHTTP := feedservice.NewHTTP(feedService, logger)

	r.Route("/api/users", func(r chi.Router) {
		feedHTTP.RegisterUserRoutes(r)
		userservice.RegisterRoutes(r, userService, authMW, limitMW, logger)
	})

	r.Route("/api/shills", func(r chi.Router) {
		feedHTTP.RegisterShillRoutes(r, authMW)
		shillservice.RegisterRoutes(r, shillService, authMW, logger)
	})

	// Stored profile pictures
	r.Handle("/uploads/*", http.StripPrefix(
		"/uploads/",
		http.FileServer(http.Dir(s.cfg.Uploads.Dir)),
	))

	return r
}
