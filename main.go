package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amplify-cloud/config"
	"amplify-cloud/content"
	"amplify-cloud/distribution"
	"amplify-cloud/generation"
	"amplify-cloud/generation/providers"
	"amplify-cloud/history"
	"amplify-cloud/logging"
	"amplify-cloud/platforms"
	"amplify-cloud/postgres"
	"amplify-cloud/security"
	"amplify-cloud/streams"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Service string `json:"service"`
	Store   string `json:"store"`
}

const (
	VERSION     = "0.1.0"
	serviceName = "amplify-cloud"
)

// backend is the set of stores selected by STORE_BACKEND.
type backend struct {
	name     string
	contents content.Store
	attempts history.Store
	tailer   history.Tailer
	redis    *redis.Client
	db       *sql.DB
}

func (b *backend) Close() {
	if b.redis != nil {
		b.redis.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.StoreBackend {
	case "memory":
		return &backend{name: "memory", contents: content.NewMemoryStore(), attempts: history.NewMemoryStore()}, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &backend{
			name:     "postgres",
			contents: content.NewPostgresStore(db),
			attempts: history.NewPostgresStore(db),
			db:       db,
		}, nil
	case "redis", "":
		client, err := streams.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		attempts := history.NewRedisStore(client)
		return &backend{
			name:     "redis",
			contents: content.NewRedisStore(client),
			attempts: attempts,
			tailer:   attempts,
			redis:    client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func main() {
	boot := logging.New(serviceName, "info")
	config.LoadEnv(boot)
	cfg := config.Load()
	logger := logging.New(serviceName, cfg.LogLevel)

	logger.Info("Starting Amplify Cloud Server...")

	ctx := context.Background()
	store, err := openBackend(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store backend")
	}
	defer store.Close()
	logger.WithField("store", store.name).Info("Store backend ready")

	// Cached OAuth tokens need Redis; other backends refresh on every restart.
	var tokens *security.TokenStore
	if store.redis != nil {
		tokens = security.NewTokenStore(store.redis, logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	adapters, err := platforms.FromConfig(ctx, cfg, tokens, platforms.OptionsFromConfig(cfg, logger))
	if err != nil {
		logger.WithError(err).Fatal("Failed to build platform adapters")
	}
	dist := distribution.New(adapters, store.contents, store.attempts,
		distribution.WithLogger(logger),
		distribution.WithMetrics(distribution.NewMetrics(reg)),
		distribution.WithRateLimitCooldown(cfg.RateLimitCooldown),
		distribution.WithSkipRecovered(cfg.RetrySkipRecovered),
	)

	gen, err := newGenerator(cfg.AI, logger, reg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build AI providers")
	}
	if len(gen.AvailableProviders()) == 0 {
		logger.Warn("No AI provider configured, /api/generate will return 503")
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler(store.name)).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")

	registerGenerateRoutes(r, gen, store.contents, logger)
	registerContentRoutes(r, store.contents, store.attempts, logger)
	registerPostRoutes(r, dist, logger)
	registerAttemptRoutes(r, store.tailer, logger)

	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + cfg.Port,
		WriteTimeout: 180 * time.Second,
		ReadTimeout:  180 * time.Second,
	}

	logger.WithField("addr", srv.Addr).Infof("Amplify Cloud Server v%s starting", VERSION)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func newGenerator(cfg config.AIConfig, logger logrus.FieldLogger, reg prometheus.Registerer) (*generation.Orchestrator, error) {
	adapters, err := providers.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	registry, err := generation.NewRegistry(adapters...)
	if err != nil {
		return nil, err
	}
	return generation.New(registry, cfg.DefaultProvider,
		generation.WithAttemptTimeout(cfg.Timeout),
		generation.WithBannedPhrases(cfg.BannedTitlePhrases),
		generation.WithMetrics(generation.NewMetrics(reg)),
		generation.WithLogger(logger),
	), nil
}

func healthHandler(store string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			OK:      true,
			Version: VERSION,
			Service: serviceName,
			Store:   store,
		})
	}
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{
		"message": "Amplify Cloud API Server",
		"version": VERSION,
		"health":  "/healthz",
	}

	json.NewEncoder(w).Encode(response)
}
