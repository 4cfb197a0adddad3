// Package verifier drives a headless browser through the page verification:
// seed a fake session, open the target route, wait for the marker heading and
// capture a screenshot whatever the outcome.
package verifier

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dev/bravebird/page-verifier/pkg/models"
)

// PageVerifier runs one verification scenario
type PageVerifier struct {
	scenario models.Scenario
	logger   logrus.FieldLogger
	runID    string
}

// Option configures a PageVerifier
type Option func(*PageVerifier)

// WithLogger sets the logger used for progress lines
func WithLogger(logger logrus.FieldLogger) Option {
	return func(v *PageVerifier) {
		v.logger = logger
	}
}

// WithRunID tags the result with an externally assigned run ID
func WithRunID(id string) Option {
	return func(v *PageVerifier) {
		v.runID = id
	}
}

// New creates a verifier for the scenario
func New(scenario models.Scenario, opts ...Option) *PageVerifier {
	v := &PageVerifier{
		scenario: scenario,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.runID == "" {
		v.runID = uuid.New().String()
	}
	if v.scenario.Session.Token == "" {
		v.scenario.Session = models.DefaultSessionSeed()
	}
	return v
}

// Scenario returns the scenario this verifier runs
func (v *PageVerifier) Scenario() models.Scenario {
	return v.scenario
}

// Verify runs the full sequence. A missing heading is reported through the
// result outcome; launch, navigation, script and screenshot failures are
// returned as errors. The browser is released on every path.
func (v *PageVerifier) Verify(ctx context.Context) (result models.VerificationResult, err error) {
	result = models.VerificationResult{
		RunID:          v.runID,
		TargetURL:      v.scenario.TargetURL(),
		ScreenshotPath: v.scenario.ScreenshotPath,
		StartedAt:      time.Now(),
	}
	defer func() {
		result.Duration = time.Since(result.StartedAt).Milliseconds()
	}()

	if err = v.scenario.Validate(); err != nil {
		return result, err
	}

	logger := v.logger.WithField("run_id", v.runID)

	session, err := v.Launch(ctx)
	if err != nil {
		return result, err
	}
	defer session.Close()

	if err = session.Navigate(v.scenario.LoginURL()); err != nil {
		return result, err
	}

	if err = v.SeedStorage(session.Page); err != nil {
		return result, err
	}

	if err = session.Navigate(v.scenario.TargetURL()); err != nil {
		return result, err
	}

	if waitErr := v.WaitForHeading(session.Page); waitErr != nil {
		result.Outcome = models.RenderFailed
		result.WaitError = waitErr.Error()
		logger.Errorf("Error waiting for header: %v", waitErr)
	} else {
		result.Outcome = models.RenderConfirmed
		logger.Infof("%s header found.", v.scenario.ExpectedHeading)
	}

	size, err := v.Capture(session.Page)
	if err != nil {
		return result, err
	}
	result.ScreenshotSize = size
	logger.Infof("Screenshot saved to %s", v.scenario.ScreenshotPath)

	return result, nil
}

// WaitForHeading waits up to the scenario timeout for a visible heading whose
// text contains the expected heading, ignoring case.
func (v *PageVerifier) WaitForHeading(page *rod.Page) error {
	p := page.Timeout(v.scenario.WaitTimeout())
	defer p.CancelTimeout()

	el, err := p.ElementR(v.scenario.HeadingSelector, headingPattern(v.scenario.ExpectedHeading))
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

// Capture writes a full page PNG to the screenshot path, replacing any
// previous file. The parent directory must already exist.
func (v *PageVerifier) Capture(page *rod.Page) (int, error) {
	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to take screenshot: %w", err)
	}

	if err := os.WriteFile(v.scenario.ScreenshotPath, data, 0644); err != nil {
		return 0, fmt.Errorf("failed to save screenshot: %w", err)
	}
	return len(data), nil
}

func (v *PageVerifier) browserBin() string {
	if v.scenario.BrowserBin != "" {
		return v.scenario.BrowserBin
	}
	return os.Getenv("CHROME_BIN")
}

// headingPattern builds the JS regex literal used by rod's ElementR
func headingPattern(text string) string {
	return "/" + regexp.QuoteMeta(text) + "/i"
}
