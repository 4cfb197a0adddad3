package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"

	"dev/bravebird/page-verifier/pkg/api"
	"dev/bravebird/page-verifier/pkg/config"
	"dev/bravebird/page-verifier/pkg/database"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logger.Info("Starting Page Verifier API Server")

	port := getEnvOrDefault("PORT", "8080")
	temporalHost := getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	screenshotDir := getEnvOrDefault("SCREENSHOT_DIR", "/tmp/screenshots")

	scenario, err := config.Load()
	if err != nil {
		logger.Fatalf("Invalid scenario configuration: %v", err)
	}

	// Initialize database
	var store api.RunStore
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		db, err := database.New(dsn)
		if err != nil {
			logger.Warnf("Failed to connect to database: %v", err)
			logger.Warn("Running without database persistence")
		} else {
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = db.EnsureSchema(ctx)
			cancel()
			if err != nil {
				logger.Fatalf("Failed to create schema: %v", err)
			}
			store = db
		}
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		logger.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer temporalClient.Close()

	handlers := api.NewHandlers(store, temporalClient, scenario, screenshotDir, logger)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("API server listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
