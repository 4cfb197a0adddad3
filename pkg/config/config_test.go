package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/page-verifier/pkg/models"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), s)
	assert.Equal(t, "http://localhost:5173/login", s.LoginURL())
	assert.Equal(t, "http://localhost:5173/payments", s.TargetURL())
	assert.Equal(t, "verification/payment_page.png", s.ScreenshotPath)
	assert.Equal(t, 5000, s.WaitTimeoutMs)
	assert.Equal(t, models.DefaultSessionSeed(), s.Session)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VERIFY_BASE_URL", "http://app.internal:8080")
	t.Setenv("VERIFY_TARGET_PATH", "/orders")
	t.Setenv("VERIFY_EXPECTED_HEADING", "My Orders")
	t.Setenv("VERIFY_WAIT_TIMEOUT_MS", "1500")
	t.Setenv("VERIFY_HEADLESS", "false")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://app.internal:8080/orders", s.TargetURL())
	assert.Equal(t, "http://app.internal:8080/login", s.LoginURL())
	assert.Equal(t, "My Orders", s.ExpectedHeading)
	assert.Equal(t, 1500, s.WaitTimeoutMs)
	assert.False(t, s.Headless)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Non numeric timeout", key: "VERIFY_WAIT_TIMEOUT_MS", val: "soon"},
		{name: "Negative timeout", key: "VERIFY_WAIT_TIMEOUT_MS", val: "-1"},
		{name: "Relative base url", key: "VERIFY_BASE_URL", val: "localhost:5173"},
		{name: "Path without slash", key: "VERIFY_LOGIN_PATH", val: "login"},
		{name: "Not a png", key: "VERIFY_SCREENSHOT_PATH", val: "out/page.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
