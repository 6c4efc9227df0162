package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BigDataForSanDiego/resourcelink/internal/config"
	dbRedis "github.com/BigDataForSanDiego/resourcelink/internal/db/redis"
	logpkg "github.com/BigDataForSanDiego/resourcelink/internal/logger"
	"github.com/BigDataForSanDiego/resourcelink/internal/metrics"
	auditrepo "github.com/BigDataForSanDiego/resourcelink/internal/repository/audit"
	availrepo "github.com/BigDataForSanDiego/resourcelink/internal/repository/availability"
	catalogrepo "github.com/BigDataForSanDiego/resourcelink/internal/repository/catalog"
	chiTransport "github.com/BigDataForSanDiego/resourcelink/internal/transport/chi"
	openaiTransport "github.com/BigDataForSanDiego/resourcelink/internal/transport/openai"
	"github.com/BigDataForSanDiego/resourcelink/internal/transport/zippo"
	availuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/availability"
	classifyuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/classify"
	healthuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/health"
	matchuc "github.com/BigDataForSanDiego/resourcelink/internal/usecase/match"
	"github.com/BigDataForSanDiego/resourcelink/internal/version"

	"github.com/BigDataForSanDiego/resourcelink/internal/domain"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting resourcelink API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("catalog_path", cfg.Catalog.Path),
		zap.String("rank_mode", cfg.Ranking.Mode),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create availability store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Availability store not ready", zap.Error(err))
	}
	logger.Info("Connected to availability store")

	metrics.RegisterMatchMetrics()

	// Catalog
	catalog := catalogrepo.New(
		cfg.Catalog.Path,
		time.Duration(cfg.Catalog.ReloadIntervalSec)*time.Second,
		logger,
	)
	if err := catalog.Load(ctx); err != nil {
		logger.Fatal("Failed to load resource catalog", zap.Error(err))
	}

	// Availability: persistent repo behind a short-lived read cache.
	repo := availrepo.New(store, cfg.Database.KeyPrefix)
	availCache := availrepo.NewCached(repo, time.Duration(cfg.Availability.CacheTTLSec)*time.Second, logger)
	availSvc := availuc.New(repo, availCache, cfg.Availability.DefaultTTLMinutes)

	// Classifier is optional; without an API key the keyword fallback carries
	// every request.
	var classifier classifyuc.Classifier
	var classifierCheck healthuc.ClassifierChecker
	if cfg.Classifier.APIKey != "" {
		c := openaiTransport.NewClassifier(&openaiTransport.ClassifierConfig{
			APIKey:  cfg.Classifier.APIKey,
			BaseURL: cfg.Classifier.BaseURL,
			Model:   cfg.Classifier.Model,
			Timeout: time.Duration(cfg.Classifier.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		classifier = c
		classifierCheck = c
		logger.Info("Classifier created", zap.String("model", cfg.Classifier.Model))
	} else {
		logger.Warn("No classifier API key, keyword fallback only")
	}
	classifySvc := classifyuc.New(classifier, logger)

	// Query embedder, only wired when hybrid ranking can use it.
	var embedder matchuc.QueryEmbedder
	if cfg.Embedding.APIKey != "" {
		embedder = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			Timeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		})
		logger.Info("Query embedder created", zap.String("model", cfg.Embedding.Model))
	}

	geocoder := zippo.New(&zippo.Config{
		BaseURL: cfg.Geocoder.BaseURL,
		Timeout: time.Duration(cfg.Geocoder.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	auditLog, err := auditrepo.NewLog(cfg.Audit.Path)
	if err != nil {
		logger.Fatal("Failed to open audit log", zap.Error(err))
	}

	matchSvc := matchuc.New(
		catalog, classifySvc, availCache, geocoder, embedder, auditLog,
		matchuc.Options{
			DefaultMode:    domain.RankMode(cfg.Ranking.Mode),
			MaxRadiusMiles: cfg.Ranking.MaxRadiusMiles,
			HybridWeight:   cfg.Ranking.SimilarityWeight,
		},
		logger,
	)

	healthSvc := healthuc.New(store, classifierCheck, catalog)

	server := chiTransport.NewServer(matchSvc, availSvc, healthSvc, geocoder, cfg.Auth.AdminToken, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
