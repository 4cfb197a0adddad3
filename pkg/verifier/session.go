package verifier

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Session is a launched browser with one isolated context and one page.
// It must be closed exactly once; a closed session is never reused.
type Session struct {
	Page *rod.Page

	launcher *launcher.Launcher
	browser  *rod.Browser
	logger   logrus.FieldLogger
	closed   bool
}

// Launch starts a browser process, opens an incognito context and a blank page in it
func (v *PageVerifier) Launch(ctx context.Context) (*Session, error) {
	l := launcher.New().Leakless(true)

	// Explicit binary wins over CHROME_BIN (Docker images) and the launcher lookup
	if bin := v.browserBin(); bin != "" {
		l = l.Bin(bin)
	}

	l = l.Headless(v.scenario.Headless)

	// Additional Chrome flags for container compatibility
	l = l.Set("no-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{
		launcher: l,
		browser:  browser,
		logger:   v.logger,
	}

	incognito, err := browser.Incognito()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.Page = page.Context(ctx)

	v.logger.WithField("headless", v.scenario.Headless).Debug("Browser session created")
	return s, nil
}

// Navigate opens url and waits for the load event
func (s *Session) Navigate(url string) error {
	if err := s.Page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := s.Page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

// Close releases the page, the context and the browser process
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if err := s.browser.Close(); err != nil {
		s.logger.WithError(err).Warn("Failed to close browser")
		s.launcher.Kill()
	}
	s.launcher.Cleanup()
}
