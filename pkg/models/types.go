package models

import (
	"time"
)

// ==================== Scenario Types ====================

// Scenario describes the single page verification: where to seed the session,
// which route to check and what marker element proves it rendered.
type Scenario struct {
	BaseURL         string `json:"base_url" envconfig:"BASE_URL" default:"http://localhost:5173"`
	LoginPath       string `json:"login_path" envconfig:"LOGIN_PATH" default:"/login"`
	TargetPath      string `json:"target_path" envconfig:"TARGET_PATH" default:"/payments"`
	HeadingSelector string `json:"heading_selector" envconfig:"HEADING_SELECTOR" default:"h2"`
	ExpectedHeading string `json:"expected_heading" envconfig:"EXPECTED_HEADING" default:"Payment History"`
	WaitTimeoutMs   int    `json:"wait_timeout_ms" envconfig:"WAIT_TIMEOUT_MS" default:"5000"`
	ScreenshotPath  string `json:"screenshot_path" envconfig:"SCREENSHOT_PATH" default:"verification/payment_page.png"`
	BrowserBin      string `json:"browser_bin,omitempty" envconfig:"BROWSER_BIN"`
	Headless        bool   `json:"headless" envconfig:"HEADLESS" default:"true"`

	Session SessionSeed `json:"session" ignored:"true"`
}

// SessionSeed is the client-side auth state written to local storage before
// the target route is opened. It mimics what a real login would leave behind.
type SessionSeed struct {
	Token string     `json:"token"`
	User  UserRecord `json:"user"`
}

// UserRecord is the JSON blob stored under the "user" key
type UserRecord struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// DefaultSessionSeed returns the fabricated credentials used by the smoke check
func DefaultSessionSeed() SessionSeed {
	return SessionSeed{
		Token: "fake-token",
		User: UserRecord{
			ID:       1,
			Username: "testuser",
		},
	}
}

// ==================== Result Types ====================

// RenderOutcome reports whether the marker element appeared in time
type RenderOutcome string

const (
	RenderConfirmed RenderOutcome = "render_confirmed"
	RenderFailed    RenderOutcome = "render_failed"
)

// VerificationResult is what a single verification run produces
type VerificationResult struct {
	RunID          string        `json:"run_id"`
	Outcome        RenderOutcome `json:"outcome"`
	WaitError      string        `json:"wait_error,omitempty"`
	TargetURL      string        `json:"target_url"`
	ScreenshotPath string        `json:"screenshot_path"`
	ScreenshotSize int           `json:"screenshot_size"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       int64         `json:"duration_ms"`
}

// Confirmed reports whether the marker element was seen
func (r VerificationResult) Confirmed() bool {
	return r.Outcome == RenderConfirmed
}

// ==================== Run Types ====================

// RunStatus represents the status of a verification run
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// IsTerminal reports whether no further status change is expected
func (s RunStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCanceled
}

// VerificationRun is the persisted record of one run
type VerificationRun struct {
	ID                 string        `json:"id" db:"id"`
	TemporalWorkflowID string        `json:"temporal_workflow_id" db:"temporal_workflow_id"`
	TemporalRunID      string        `json:"temporal_run_id" db:"temporal_run_id"`
	TargetURL          string        `json:"target_url" db:"target_url"`
	Status             RunStatus     `json:"status" db:"status"`
	Outcome            RenderOutcome `json:"outcome,omitempty" db:"outcome"`
	ScreenshotPath     string        `json:"screenshot_path,omitempty" db:"screenshot_path"`
	ErrorMessage       string        `json:"error_message,omitempty" db:"error_message"`
	StartedAt          *time.Time    `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time    `json:"completed_at" db:"completed_at"`
	DurationMs         int64         `json:"duration_ms,omitempty" db:"duration_ms"`
}

// ==================== Workflow Types ====================

// VerificationInput is the workflow input for one verification run
type VerificationInput struct {
	RunID    string   `json:"run_id"`
	Scenario Scenario `json:"scenario"`
	Timeout  int      `json:"timeout_seconds"`
}

// VerificationReport is the workflow result and the answer to its progress query
type VerificationReport struct {
	RunID        string              `json:"run_id"`
	Status       RunStatus           `json:"status"`
	Result       *VerificationResult `json:"result,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// ==================== API Request/Response Types ====================

// VerificationRequest starts a run; empty fields fall back to the server's scenario
type VerificationRequest struct {
	BaseURL         string `json:"base_url,omitempty"`
	TargetPath      string `json:"target_path,omitempty"`
	ExpectedHeading string `json:"expected_heading,omitempty"`
	WaitTimeoutMs   int    `json:"wait_timeout_ms,omitempty"`
}

// ==================== WebSocket Message Types ====================

// WSMessage represents a WebSocket message for real-time updates
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RunStatusUpdate is the payload of a "run_update" message
type RunStatusUpdate struct {
	RunID   string        `json:"run_id"`
	Status  RunStatus     `json:"status"`
	Outcome RenderOutcome `json:"outcome,omitempty"`
	Message string        `json:"message,omitempty"`
}
