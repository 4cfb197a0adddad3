// Package config loads the verification scenario. Defaults reproduce the
// payments page smoke check; VERIFY_* environment variables override them.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"dev/bravebird/page-verifier/pkg/models"
)

// EnvPrefix is prepended to every scenario variable, e.g. VERIFY_BASE_URL
const EnvPrefix = "VERIFY"

// Default returns the built-in scenario without consulting the environment
func Default() models.Scenario {
	return models.Scenario{
		BaseURL:         "http://localhost:5173",
		LoginPath:       "/login",
		TargetPath:      "/payments",
		HeadingSelector: "h2",
		ExpectedHeading: "Payment History",
		WaitTimeoutMs:   5000,
		ScreenshotPath:  "verification/payment_page.png",
		Headless:        true,
		Session:         models.DefaultSessionSeed(),
	}
}

// Load builds the scenario from defaults and the environment
func Load() (models.Scenario, error) {
	var s models.Scenario
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return models.Scenario{}, fmt.Errorf("failed to load config: %w", err)
	}
	s.Session = models.DefaultSessionSeed()

	if err := s.Validate(); err != nil {
		return models.Scenario{}, err
	}
	return s, nil
}

// Usage prints the supported environment variables
func Usage() error {
	var s models.Scenario
	return envconfig.Usage(EnvPrefix, &s)
}
