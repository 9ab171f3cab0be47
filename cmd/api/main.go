// Package main is the entrypoint for the Trimlink API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/trimlink/trimlink/internal/cache"
	"github.com/trimlink/trimlink/internal/config"
	"github.com/trimlink/trimlink/internal/cron"
	"github.com/trimlink/trimlink/internal/handler"
	"github.com/trimlink/trimlink/internal/metrics"
	"github.com/trimlink/trimlink/internal/middleware"
	"github.com/trimlink/trimlink/internal/repository"
	"github.com/trimlink/trimlink/internal/server"
	"github.com/trimlink/trimlink/internal/service"
	"github.com/trimlink/trimlink/internal/stats"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Run schema migrations if requested
	if cfg.MigrateOnStart {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error(
				"failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	cacheStore := cache.NewStore(redisClient, cfg.CacheTTL, cfg.CacheOpTimeout, logger)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsRecorder := metrics.NewPrometheus(registry)

	// Initialize services
	domainService := service.NewDomainService(repo, cacheStore)
	linkService := service.NewLinkService(repo, domainService, cacheStore, metricsRecorder)

	// Initialize background workers
	geo := stats.NewNoopGeo()
	if cfg.GeoTable != "" {
		geo = stats.NewStaticGeo(stats.ParseGeoTable(cfg.GeoTable))
	}
	statRecorder := stats.NewRecorder(repo, geo, logger, cfg.StatQueueSize, cfg.StatWorkers, metricsRecorder)
	evictor := cron.NewEvictor(repo, cacheStore, redisClient, logger, cfg.SweepInterval, cfg.SweepLockTTL, metricsRecorder)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, redisPinger{redisClient})
	linkHandler := handler.NewLinkHandler(linkService, logger)
	domainHandler := handler.NewDomainHandler(domainService, logger)
	redirectHandler := handler.NewRedirectHandler(linkService, statRecorder, metricsRecorder, logger, cfg.DefaultDomain)

	// Setup router
	r := setupRouter(healthHandler, linkHandler, domainHandler, redirectHandler, registry, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start background workers. Registered before the server runs, so
	// they shut down after the HTTP surface has drained.
	go func() {
		if err := statRecorder.Run(); err != nil {
			logger.Error("stat recorder stopped", "error", err)
		}
	}()
	srv.OnShutdown("stat_recorder", statRecorder.Shutdown)

	go func() {
		if err := evictor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("expiry evictor stopped", "error", err)
		}
	}()
	srv.OnShutdown("expiry_evictor", evictor.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"default_domain", cfg.DefaultDomain,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// redisPinger adapts the go-redis client to the handler.Pinger interface.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	healthHandler *handler.HealthHandler,
	linkHandler *handler.LinkHandler,
	domainHandler *handler.DomainHandler,
	redirectHandler *handler.RedirectHandler,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health and metrics endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Management API
	r.Route("/api/links", func(r chi.Router) {
		r.Post("/", linkHandler.Create)
		r.Delete("/", linkHandler.BulkDelete)
		r.Post("/bulk-delete", linkHandler.BulkDelete)
		r.Get("/{id}", linkHandler.Get)
		r.Put("/{id}", linkHandler.Update)
		r.Patch("/{id}", linkHandler.Update)
		r.Delete("/{id}", linkHandler.Delete)
		r.Get("/{id}/qr", linkHandler.QRCode)
	})

	r.Route("/api/domains", func(r chi.Router) {
		r.Get("/", domainHandler.List)
		r.Get("/{id}", domainHandler.Get)
	})

	// Public resolution surface
	r.Get("/{shortCode}", redirectHandler.Redirect)
	r.Post("/{shortCode}/protected", redirectHandler.ResolveProtected)

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
