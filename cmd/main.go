/*
Package main is the entry point for the presence relay.

It is responsible for loading configuration, initializing the global logging system,
starting the relay Hub and the dataset watcher, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"presence/internal/app/dataset"
	"presence/internal/app/relay"
	"presence/internal/configs"
	"presence/internal/handler"
	"presence/internal/pkg/limiter"
	"presence/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Float64("ws_connect_rate", cfg.WSConnectRate).
		Int("ws_connect_burst", cfg.WSConnectBurst).
		Dur("heartbeat_interval", cfg.HeartbeatInterval).
		Dur("secret_ttl", cfg.SecretTTL).
		Bool("dataset_s3", cfg.DatasetS3.Enabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the relay hub
	hub := relay.NewHub(relay.Config{
		HeartbeatInterval:   cfg.HeartbeatInterval,
		SecretSweepInterval: cfg.SecretSweepInterval,
		SecretTTL:           cfg.SecretTTL,
		MaxMessageBytes:     cfg.MaxMessageBytes,
		Registerer:          prometheus.DefaultRegisterer,
	})
	go hub.Run()

	// Start the dataset watcher
	provider, err := newDatasetProvider(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize dataset provider")
	}
	watcher := dataset.NewWatcher(provider, cfg.DatasetPollInterval, hub.PublishDataset)
	initial := watcher.Prime(ctx)
	logx.Info("Dataset snapshot loaded", "exists", initial.Exists, "path", initial.Path, "rows", initial.Rows)
	go watcher.Run(ctx)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:            hub,
		Config:         cfg,
		ConnectLimiter: limiter.NewIPRateLimiter(ctx, rate.Limit(cfg.WSConnectRate), cfg.WSConnectBurst),
		Gatherer:       prometheus.DefaultGatherer,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Presence relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by Shutdown; stopping the
	// hub closes their queues and the write pumps close the sockets.
	hub.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}

func newDatasetProvider(ctx context.Context, cfg *configs.AppConfig) (dataset.Provider, error) {
	if cfg.DatasetS3.Enabled() {
		logx.Info("Reading dataset from S3", "bucket", cfg.DatasetS3.Bucket, "keys", cfg.DatasetS3.Keys)
		return dataset.NewS3Provider(ctx, cfg.DatasetS3)
	}

	logx.Info("Reading dataset from local files", "paths", cfg.DatasetPaths)
	return dataset.NewFileProvider(cfg.DatasetPaths), nil
}
