package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/page-verifier/pkg/models"
)

const (
	// TaskQueue is the queue the worker polls and the API starts runs on
	TaskQueue = "page-verification"

	// ProgressQuery returns the current models.VerificationReport
	ProgressQuery = "getProgress"

	defaultTimeoutSeconds = 120
)

// PageVerificationWorkflow runs the page verification once and records the result.
// The verification itself is never retried. A cancelled run is recorded as
// canceled and the workflow ends canceled.
func PageVerificationWorkflow(ctx workflow.Context, input models.VerificationInput) (models.VerificationReport, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting page verification workflow", "runID", input.RunID, "target", input.Scenario.TargetURL())

	report := models.VerificationReport{
		RunID:  input.RunID,
		Status: models.StatusRunning,
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (models.VerificationReport, error) {
		return report, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	verifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(timeout) * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var result models.VerificationResult
	err = workflow.ExecuteActivity(verifyCtx, "VerifyPageActivity", VerifyPageInput{
		RunID:    input.RunID,
		Scenario: input.Scenario,
	}).Get(ctx, &result)

	canceled := temporal.IsCanceledError(err)

	switch {
	case canceled:
		report.Status = models.StatusCanceled
		report.ErrorMessage = "Cancelled by user"
	case err != nil:
		report.Status = models.StatusFailed
		report.ErrorMessage = err.Error()
	case result.Confirmed():
		report.Status = models.StatusSuccess
		report.Result = &result
	default:
		report.Status = models.StatusFailed
		report.Result = &result
		report.ErrorMessage = result.WaitError
	}

	// Recording is an idempotent upsert, so it may retry. It runs detached so a
	// cancelled run still gets its final status stored.
	recordCtx, _ := workflow.NewDisconnectedContext(ctx)
	recordCtx = workflow.WithActivityOptions(recordCtx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	err = workflow.ExecuteActivity(recordCtx, "RecordRunActivity", RecordRunInput{
		RunID:        input.RunID,
		TargetURL:    input.Scenario.TargetURL(),
		Status:       report.Status,
		Result:       result,
		ErrorMessage: report.ErrorMessage,
	}).Get(recordCtx, nil)
	if err != nil {
		logger.Warn("Failed to record verification run", "runID", input.RunID, "error", err.Error())
	}

	if canceled {
		logger.Info("Workflow canceled", "runID", input.RunID)
		return report, ctx.Err()
	}

	logger.Info("Workflow completed", "status", report.Status, "outcome", result.Outcome)
	return report, nil
}

// VerifyPageInput is the input for VerifyPageActivity
type VerifyPageInput struct {
	RunID    string          `json:"run_id"`
	Scenario models.Scenario `json:"scenario"`
}

// RecordRunInput is the input for RecordRunActivity
type RecordRunInput struct {
	RunID        string                    `json:"run_id"`
	TargetURL    string                    `json:"target_url"`
	Status       models.RunStatus          `json:"status"`
	Result       models.VerificationResult `json:"result"`
	ErrorMessage string                    `json:"error_message,omitempty"`
}
