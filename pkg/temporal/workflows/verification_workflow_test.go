package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"dev/bravebird/page-verifier/pkg/models"
)

func verifyPageStub(ctx context.Context, input VerifyPageInput) (models.VerificationResult, error) {
	return models.VerificationResult{}, nil
}

func recordRunStub(ctx context.Context, input RecordRunInput) error {
	return nil
}

func newTestEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(verifyPageStub, activity.RegisterOptions{Name: "VerifyPageActivity"})
	env.RegisterActivityWithOptions(recordRunStub, activity.RegisterOptions{Name: "RecordRunActivity"})
	return env
}

func testInput() models.VerificationInput {
	return models.VerificationInput{
		RunID: "run-1",
		Scenario: models.Scenario{
			BaseURL:         "http://localhost:5173",
			LoginPath:       "/login",
			TargetPath:      "/payments",
			HeadingSelector: "h2",
			ExpectedHeading: "Payment History",
			WaitTimeoutMs:   5000,
			ScreenshotPath:  "verification/payment_page.png",
		},
	}
}

func TestPageVerificationWorkflow(t *testing.T) {
	tests := []struct {
		name       string
		result     models.VerificationResult
		err        error
		wantStatus models.RunStatus
		wantError  string
		wantResult bool
	}{
		{
			name:       "Heading rendered",
			result:     models.VerificationResult{RunID: "run-1", Outcome: models.RenderConfirmed},
			wantStatus: models.StatusSuccess,
			wantResult: true,
		},
		{
			name:       "Heading missing",
			result:     models.VerificationResult{RunID: "run-1", Outcome: models.RenderFailed, WaitError: "context deadline exceeded"},
			wantStatus: models.StatusFailed,
			wantError:  "context deadline exceeded",
			wantResult: true,
		},
		{
			name:       "Browser failed",
			err:        temporal.NewNonRetryableApplicationError("failed to launch browser", "VerificationError", nil),
			wantStatus: models.StatusFailed,
			wantError:  "failed to launch browser",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			env.OnActivity("VerifyPageActivity", mock.Anything, mock.Anything).Return(tt.result, tt.err).Once()

			var recorded RecordRunInput
			env.OnActivity("RecordRunActivity", mock.Anything, mock.Anything).Return(
				func(ctx context.Context, input RecordRunInput) error {
					recorded = input
					return nil
				}).Once()

			env.ExecuteWorkflow(PageVerificationWorkflow, testInput())

			require.True(t, env.IsWorkflowCompleted())
			require.NoError(t, env.GetWorkflowError())

			var report models.VerificationReport
			require.NoError(t, env.GetWorkflowResult(&report))

			assert.Equal(t, "run-1", report.RunID)
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Contains(t, report.ErrorMessage, tt.wantError)
			assert.Equal(t, tt.wantResult, report.Result != nil)

			assert.Equal(t, "run-1", recorded.RunID)
			assert.Equal(t, tt.wantStatus, recorded.Status)
			assert.Equal(t, "http://localhost:5173/payments", recorded.TargetURL)

			env.AssertExpectations(t)
		})
	}
}

func TestPageVerificationWorkflowDoesNotRetryVerification(t *testing.T) {
	env := newTestEnv(t)

	env.OnActivity("VerifyPageActivity", mock.Anything, mock.Anything).
		Return(models.VerificationResult{}, errors.New("net::ERR_CONNECTION_REFUSED")).Once()
	env.OnActivity("RecordRunActivity", mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(PageVerificationWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var report models.VerificationReport
	require.NoError(t, env.GetWorkflowResult(&report))
	assert.Equal(t, models.StatusFailed, report.Status)
	assert.Contains(t, report.ErrorMessage, "ERR_CONNECTION_REFUSED")

	env.AssertExpectations(t)
}

func TestPageVerificationWorkflowSurvivesRecordFailure(t *testing.T) {
	env := newTestEnv(t)

	env.OnActivity("VerifyPageActivity", mock.Anything, mock.Anything).
		Return(models.VerificationResult{Outcome: models.RenderConfirmed}, nil).Once()
	env.OnActivity("RecordRunActivity", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("database down", "StoreError", nil))

	env.ExecuteWorkflow(PageVerificationWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var report models.VerificationReport
	require.NoError(t, env.GetWorkflowResult(&report))
	assert.Equal(t, models.StatusSuccess, report.Status)
}

func TestPageVerificationWorkflowCanceled(t *testing.T) {
	env := newTestEnv(t)

	env.OnActivity("VerifyPageActivity", mock.Anything, mock.Anything).
		Return(models.VerificationResult{Outcome: models.RenderConfirmed}, nil).After(10 * time.Second)

	var recorded RecordRunInput
	env.OnActivity("RecordRunActivity", mock.Anything, mock.Anything).Return(
		func(ctx context.Context, input RecordRunInput) error {
			recorded = input
			return nil
		}).Once()

	env.RegisterDelayedCallback(env.CancelWorkflow, time.Second)

	env.ExecuteWorkflow(PageVerificationWorkflow, testInput())

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.True(t, temporal.IsCanceledError(err))

	assert.Equal(t, "run-1", recorded.RunID)
	assert.Equal(t, models.StatusCanceled, recorded.Status)
	assert.Equal(t, "Cancelled by user", recorded.ErrorMessage)
}
