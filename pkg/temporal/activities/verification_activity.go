package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"dev/bravebird/page-verifier/pkg/models"
	"dev/bravebird/page-verifier/pkg/temporal/workflows"
	"dev/bravebird/page-verifier/pkg/verifier"
)

// RunStore persists verification runs; *database.DB satisfies it
type RunStore interface {
	CreateVerificationRun(ctx context.Context, run *models.VerificationRun) error
	CompleteVerificationRun(ctx context.Context, id string, status models.RunStatus, result models.VerificationResult, errorMsg string) error
}

// VerifyFunc runs one verification
type VerifyFunc func(ctx context.Context, scenario models.Scenario, runID string) (models.VerificationResult, error)

// Activities holds activity implementations
type Activities struct {
	Store  RunStore
	Logger logrus.FieldLogger

	verify VerifyFunc
}

// NewActivities creates new activities. store may be nil.
func NewActivities(store RunStore, logger logrus.FieldLogger) *Activities {
	a := &Activities{
		Store:  store,
		Logger: logger,
	}
	a.verify = a.runVerifier
	return a
}

// VerifyPageActivity launches the browser and runs the page verification
func (a *Activities) VerifyPageActivity(ctx context.Context, input workflows.VerifyPageInput) (models.VerificationResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running page verification", "runID", input.RunID, "target", input.Scenario.TargetURL())

	activity.RecordHeartbeat(ctx, "launching browser")

	result, err := a.verify(ctx, input.Scenario, input.RunID)
	if err != nil {
		logger.Error("Page verification failed", "runID", input.RunID, "error", err)
		// A broken environment does not heal on retry
		return result, temporal.NewNonRetryableApplicationError(err.Error(), "VerificationError", err)
	}

	logger.Info("Page verification finished", "runID", input.RunID, "outcome", result.Outcome, "duration", result.Duration)
	return result, nil
}

// RecordRunActivity stores the final state of a run when a store is configured
func (a *Activities) RecordRunActivity(ctx context.Context, input workflows.RecordRunInput) error {
	if a.Store == nil {
		return nil
	}

	logger := activity.GetLogger(ctx)
	info := activity.GetInfo(ctx)

	startedAt := input.Result.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	run := &models.VerificationRun{
		ID:                 input.RunID,
		TemporalWorkflowID: info.WorkflowExecution.ID,
		TemporalRunID:      info.WorkflowExecution.RunID,
		TargetURL:          input.TargetURL,
		Status:             models.StatusRunning,
		ScreenshotPath:     input.Result.ScreenshotPath,
		StartedAt:          &startedAt,
	}
	if err := a.Store.CreateVerificationRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if err := a.Store.CompleteVerificationRun(ctx, input.RunID, input.Status, input.Result, input.ErrorMessage); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	logger.Info("Recorded verification run", "runID", input.RunID, "status", input.Status)
	return nil
}

func (a *Activities) runVerifier(ctx context.Context, scenario models.Scenario, runID string) (models.VerificationResult, error) {
	logger := a.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	v := verifier.New(scenario, verifier.WithRunID(runID), verifier.WithLogger(logger))
	return v.Verify(ctx)
}
