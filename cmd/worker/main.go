package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"dev/bravebird/page-verifier/pkg/database"
	"dev/bravebird/page-verifier/pkg/temporal/activities"
	"dev/bravebird/page-verifier/pkg/temporal/workflows"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	temporalHost := getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		logger.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	// Run history is optional; without a DSN results only live in Temporal
	var store activities.RunStore
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		db, err := database.New(dsn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to create schema: %v", err)
		}
		store = db
	} else {
		logger.Warn("MYSQL_DSN not set, run history will not be recorded")
	}

	screenshotDir := getEnvOrDefault("SCREENSHOT_DIR", "/tmp/screenshots")
	if err := os.MkdirAll(screenshotDir, 0755); err != nil {
		logger.Fatalf("Failed to create screenshot directory: %v", err)
	}

	acts := activities.NewActivities(store, logger)

	// One browser per activity, keep concurrency modest
	w := worker.New(c, workflows.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     3,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(workflows.PageVerificationWorkflow)
	w.RegisterActivity(acts)

	logger.WithFields(logrus.Fields{
		"task_queue":     workflows.TaskQueue,
		"temporal_host":  temporalHost,
		"screenshot_dir": screenshotDir,
	}).Info("Starting Temporal worker")

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatalf("Worker failed: %v", err)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
