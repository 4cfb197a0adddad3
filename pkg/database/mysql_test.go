package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"dev/bravebird/page-verifier/pkg/models"
)

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *models.RunStatus:
			*p = r.values[i].(models.RunStatus)
		case *models.RenderOutcome:
			*p = r.values[i].(models.RenderOutcome)
		case *sql.NullTime:
			*p = r.values[i].(sql.NullTime)
		case *int64:
			*p = r.values[i].(int64)
		}
	}
	return nil
}

func TestScanRun(t *testing.T) {
	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	row := fakeRow{values: []interface{}{
		"run-1", "page-verification-run-1", "temporal-run", "http://localhost:5173/payments",
		models.StatusSuccess, models.RenderFailed, "verification/payment_page.png", "context deadline exceeded",
		sql.NullTime{Time: started, Valid: true}, sql.NullTime{}, int64(5300),
	}}

	run, err := scanRun(row)
	if err != nil {
		t.Fatalf("scanRun() error = %v", err)
	}

	if run.ID != "run-1" || run.Status != models.StatusSuccess || run.Outcome != models.RenderFailed {
		t.Errorf("scanRun() = %+v", run)
	}
	if run.StartedAt == nil || !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", run.CompletedAt)
	}
	if run.DurationMs != 5300 {
		t.Errorf("DurationMs = %d, want 5300", run.DurationMs)
	}
}

func TestScanRunError(t *testing.T) {
	if _, err := scanRun(fakeRow{err: sql.ErrNoRows}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("scanRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestCompletionMessage(t *testing.T) {
	tests := []struct {
		name     string
		result   models.VerificationResult
		errorMsg string
		want     string
	}{
		{
			name:   "Confirmed render",
			result: models.VerificationResult{Outcome: models.RenderConfirmed},
			want:   "",
		},
		{
			name:   "Failed render keeps wait error",
			result: models.VerificationResult{Outcome: models.RenderFailed, WaitError: "context deadline exceeded"},
			want:   "context deadline exceeded",
		},
		{
			name:     "Fatal error wins",
			result:   models.VerificationResult{WaitError: "context deadline exceeded"},
			errorMsg: "failed to launch browser",
			want:     "failed to launch browser",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := completionMessage(tt.result, tt.errorMsg); got != tt.want {
				t.Errorf("completionMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDSNForcesParseTime(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{name: "No parameters", dsn: "verifier:secret@tcp(localhost:3306)/verifier"},
		{name: "Explicitly disabled", dsn: "verifier:secret@tcp(localhost:3306)/verifier?parseTime=false"},
		{name: "Already enabled", dsn: "verifier:secret@tcp(localhost:3306)/verifier?parseTime=true&timeout=5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseDSN(tt.dsn)
			if err != nil {
				t.Fatalf("parseDSN() error = %v", err)
			}
			if !cfg.ParseTime {
				t.Errorf("ParseTime = false, want true")
			}
			if cfg.DBName != "verifier" {
				t.Errorf("DBName = %q, want verifier", cfg.DBName)
			}
			if cfg.Addr != "localhost:3306" {
				t.Errorf("Addr = %q, want localhost:3306", cfg.Addr)
			}
		})
	}
}

func TestParseDSNInvalid(t *testing.T) {
	if _, err := parseDSN("not a dsn"); err == nil {
		t.Error("parseDSN() error = nil, want error")
	}
}
