package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/page-verifier/pkg/config"
)

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	cmd, flags := buildRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--base-url", "http://staging.internal:8080",
		"--wait-timeout-ms", "2500",
		"--headless=false",
	}))

	base := config.Default()
	base.ExpectedHeading = "From Env"

	got := applyFlags(base, cmd.Flags(), flags)

	assert.Equal(t, "http://staging.internal:8080", got.BaseURL)
	assert.Equal(t, 2500, got.WaitTimeoutMs)
	assert.False(t, got.Headless)
	assert.Equal(t, "From Env", got.ExpectedHeading)
	assert.Equal(t, "/payments", got.TargetPath)
	assert.Equal(t, "verification/payment_page.png", got.ScreenshotPath)
}

func TestApplyFlagsNoFlags(t *testing.T) {
	cmd, flags := buildRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	base := config.Default()
	base.BaseURL = "http://from-env:9000"

	got := applyFlags(base, cmd.Flags(), flags)
	assert.Equal(t, base, got)
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--wait-timeout-ms", "0"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)

	var exitErr *exitError
	assert.False(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "wait timeout")
}

func TestRootRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}
