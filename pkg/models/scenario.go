package models

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// LoginURL is the page opened first so local storage has the right origin
func (s Scenario) LoginURL() string {
	return joinURL(s.BaseURL, s.LoginPath)
}

// TargetURL is the route whose rendering is verified
func (s Scenario) TargetURL() string {
	return joinURL(s.BaseURL, s.TargetPath)
}

// WaitTimeout returns the bounded wait for the marker element
func (s Scenario) WaitTimeout() time.Duration {
	return time.Duration(s.WaitTimeoutMs) * time.Millisecond
}

// Validate checks that the scenario can be executed as configured
func (s Scenario) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", s.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base url %q: scheme must be http or https", s.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base url %q: missing host", s.BaseURL)
	}
	if !strings.HasPrefix(s.LoginPath, "/") {
		return fmt.Errorf("login path %q must start with /", s.LoginPath)
	}
	if !strings.HasPrefix(s.TargetPath, "/") {
		return fmt.Errorf("target path %q must start with /", s.TargetPath)
	}
	if strings.TrimSpace(s.HeadingSelector) == "" {
		return fmt.Errorf("heading selector is required")
	}
	if strings.TrimSpace(s.ExpectedHeading) == "" {
		return fmt.Errorf("expected heading is required")
	}
	if s.WaitTimeoutMs <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %dms", s.WaitTimeoutMs)
	}
	if s.ScreenshotPath == "" {
		return fmt.Errorf("screenshot path is required")
	}
	if !strings.EqualFold(filepath.Ext(s.ScreenshotPath), ".png") {
		return fmt.Errorf("screenshot path %q must end in .png", s.ScreenshotPath)
	}
	return nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
