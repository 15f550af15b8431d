package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/originpoint/backend/internal/analytics"
	"github.com/originpoint/backend/internal/appsvc"
	"github.com/originpoint/backend/internal/audit"
	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/blobstore"
	"github.com/originpoint/backend/internal/config"
	"github.com/originpoint/backend/internal/db"
	"github.com/originpoint/backend/internal/documents"
	"github.com/originpoint/backend/internal/httpapi"
	"github.com/originpoint/backend/internal/llm"
	"github.com/originpoint/backend/internal/obs"
	"github.com/originpoint/backend/internal/wschat"
)

// main wires every service package into the REST/JSON and WebSocket
// surfaces of spec.md §6, grounded on the teacher's cmd/api/main.go:
// config load, dependency construction, router assembly, then
// ListenAndServe behind a signal-driven graceful shutdown.
func main() {
	logger := slog.Default()
	cfg := config.Get()

	if err := db.Migrate(&cfg.Database); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Error("failed to open database pools", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	metrics := obs.NewMetrics()
	verifier := authscope.NewVerifier(cfg.Auth)
	agent := llm.NewHTTPProvider(cfg.LLM)

	repo := appsvc.NewRepository(pool.Lending)
	hmdaRepo := appsvc.NewHmdaRepository(pool.Compliance)
	docStore := appsvc.NewDocumentStore(repo, hmdaRepo)

	chain := audit.NewChain(pool.Lending, cfg.Audit.AdvisoryLockKey, metrics)
	analyticsRepo := analytics.NewRepository(pool.Lending)
	blobs := blobstore.New(cfg.BlobStore.Endpoint, cfg.BlobStore.SecretKey, cfg.BlobStore.Bucket)
	extraction := documents.NewExtractionWorker(agent, docStore, metrics, chain, 0, 0)

	hub := wschat.NewHub(metrics, logger)
	chatRepo := wschat.NewRepository(pool.Lending)
	chatHandler := wschat.NewHandler(verifier, hub, agent, chatRepo, metrics, logger, cfg.Server.CORSAllowOrigins)

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			logger.Warn("redis ping failed, rate limiting disabled", "addr", cfg.Redis.Addr, "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	srv := httpapi.NewServer(repo, hmdaRepo, chain, analyticsRepo, blobs, extraction, verifier, cfg, metrics, logger, chatHandler)
	router := srv.NewRouter(rdb)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("received shutdown signal, shutting down gracefully")

		hub.Shutdown()
		extraction.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("originpoint backend starting", "port", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
