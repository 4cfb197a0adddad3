package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"dev/bravebird/page-verifier/pkg/models"
	"dev/bravebird/page-verifier/pkg/temporal/workflows"
)

// WorkflowClient is the part of client.Client the handlers use
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
	CancelWorkflow(ctx context.Context, workflowID string, runID string) error
}

// RunStore is the part of database.DB the handlers use
type RunStore interface {
	CreateVerificationRun(ctx context.Context, run *models.VerificationRun) error
	AttachWorkflow(ctx context.Context, id, workflowID, runID string) error
	UpdateVerificationRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg string) error
	GetVerificationRun(ctx context.Context, id string) (*models.VerificationRun, error)
	ListVerificationRuns(ctx context.Context, limit int) ([]models.VerificationRun, error)
}

// Handlers contains API handlers
type Handlers struct {
	db             RunStore
	temporalClient WorkflowClient
	scenario       models.Scenario
	screenshotDir  string
	pollInterval   time.Duration
	logger         logrus.FieldLogger
	upgrader       websocket.Upgrader
}

// NewHandlers creates new API handlers. db may be nil; runs are then only
// visible through the Temporal progress query.
func NewHandlers(db RunStore, temporalClient WorkflowClient, scenario models.Scenario, screenshotDir string, logger logrus.FieldLogger) *Handlers {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handlers{
		db:             db,
		temporalClient: temporalClient,
		scenario:       scenario,
		screenshotDir:  screenshotDir,
		pollInterval:   500 * time.Millisecond,
		logger:         logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WorkflowID maps a run ID to its Temporal workflow ID
func WorkflowID(runID string) string {
	return "page-verification-" + runID
}

// ==================== Verification Handlers ====================

// StartVerification starts a verification run on the worker
func (h *Handlers) StartVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()
	scenario := h.scenarioFor(req, runID)
	if err := scenario.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	run := &models.VerificationRun{
		ID:             runID,
		TargetURL:      scenario.TargetURL(),
		Status:         models.StatusPending,
		ScreenshotPath: scenario.ScreenshotPath,
		StartedAt:      &now,
	}

	if h.db != nil {
		if err := h.db.CreateVerificationRun(ctx, run); err != nil {
			http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        WorkflowID(runID),
		TaskQueue: workflows.TaskQueue,
	}

	input := models.VerificationInput{
		RunID:    runID,
		Scenario: scenario,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, "PageVerificationWorkflow", input)
	if err != nil {
		if h.db != nil {
			if dbErr := h.db.UpdateVerificationRunStatus(ctx, runID, models.StatusFailed, err.Error()); dbErr != nil {
				h.logger.WithError(dbErr).WithField("run_id", runID).Warn("Failed to mark run failed")
			}
		}
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if h.db != nil {
		if err := h.db.AttachWorkflow(ctx, runID, we.GetID(), we.GetRunID()); err != nil {
			h.logger.WithError(err).WithField("run_id", runID).Warn("Failed to store Temporal IDs")
		}
	}

	h.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"target": run.TargetURL,
	}).Info("Verification started")

	respondJSONStatus(w, http.StatusAccepted, map[string]interface{}{
		"run_id":               runID,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               models.StatusRunning,
	})
}

// ListVerifications lists recent runs
func (h *Handlers) ListVerifications(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.db.ListVerificationRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, runs)
}

// GetVerification returns a run from the database, or its live progress
func (h *Handlers) GetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if h.db != nil {
		run, err := h.db.GetVerificationRun(ctx, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if run != nil {
			respondJSON(w, run)
			return
		}
	}

	report, err := h.queryProgress(ctx, id)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	respondJSON(w, report)
}

// CancelVerification cancels a running verification
func (h *Handlers) CancelVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.temporalClient.CancelWorkflow(ctx, WorkflowID(id), ""); err != nil {
		http.Error(w, "Failed to cancel workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if h.db != nil {
		if err := h.db.UpdateVerificationRunStatus(ctx, id, models.StatusCanceled, "Cancelled by user"); err != nil {
			h.logger.WithError(err).WithField("run_id", id).Warn("Failed to mark run canceled")
		}
	}

	respondJSON(w, map[string]models.RunStatus{"status": models.StatusCanceled})
}

// StreamVerification streams run status updates via WebSocket
func (h *Handlers) StreamVerification(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var last models.RunStatusUpdate

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update, ok := h.currentStatus(ctx, runID)
			if !ok || update == last {
				continue
			}

			msg := models.WSMessage{
				Type:    "run_update",
				Payload: update,
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			last = update

			if update.Status.IsTerminal() {
				return
			}
		}
	}
}

// currentStatus asks Temporal first and falls back to the database
func (h *Handlers) currentStatus(ctx context.Context, runID string) (models.RunStatusUpdate, bool) {
	if report, err := h.queryProgress(ctx, runID); err == nil {
		update := models.RunStatusUpdate{
			RunID:   runID,
			Status:  report.Status,
			Message: report.ErrorMessage,
		}
		if report.Result != nil {
			update.Outcome = report.Result.Outcome
		}
		return update, true
	}

	if h.db == nil {
		return models.RunStatusUpdate{}, false
	}

	run, err := h.db.GetVerificationRun(ctx, runID)
	if err != nil || run == nil {
		return models.RunStatusUpdate{}, false
	}
	return models.RunStatusUpdate{
		RunID:   runID,
		Status:  run.Status,
		Outcome: run.Outcome,
		Message: run.ErrorMessage,
	}, true
}

func (h *Handlers) queryProgress(ctx context.Context, runID string) (models.VerificationReport, error) {
	var report models.VerificationReport

	resp, err := h.temporalClient.QueryWorkflow(ctx, WorkflowID(runID), "", workflows.ProgressQuery)
	if err != nil {
		return report, err
	}
	if err := resp.Get(&report); err != nil {
		return report, fmt.Errorf("failed to decode progress: %w", err)
	}
	return report, nil
}

// scenarioFor applies request overrides to the server scenario
func (h *Handlers) scenarioFor(req models.VerificationRequest, runID string) models.Scenario {
	s := h.scenario
	if req.BaseURL != "" {
		s.BaseURL = req.BaseURL
	}
	if req.TargetPath != "" {
		s.TargetPath = req.TargetPath
	}
	if req.ExpectedHeading != "" {
		s.ExpectedHeading = req.ExpectedHeading
	}
	if req.WaitTimeoutMs != 0 {
		s.WaitTimeoutMs = req.WaitTimeoutMs
	}
	s.ScreenshotPath = filepath.Join(h.screenshotDir, runID+".png")
	return s
}

// ==================== Screenshot Handlers ====================

// ServeScreenshot serves a screenshot file
func (h *Handlers) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	// Only files directly inside the screenshot directory
	filePath := filepath.Join(h.screenshotDir, filepath.Base(filename))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filePath)
}

// ==================== Helpers ====================

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
