package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dev/bravebird/page-verifier/pkg/config"
	"dev/bravebird/page-verifier/pkg/models"
	"dev/bravebird/page-verifier/pkg/verifier"
)

// exitCodeRenderFailed is returned in strict mode when the heading never showed up
const exitCodeRenderFailed = 2

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

type rootFlags struct {
	baseURL         string
	loginPath       string
	targetPath      string
	headingSelector string
	expectedHeading string
	waitTimeoutMs   int
	screenshotPath  string
	browserBin      string
	headless        bool
	strict          bool
	verbose         bool
	envHelp         bool
}

func newRootCmd() *cobra.Command {
	cmd, _ := buildRootCmd()
	return cmd
}

func buildRootCmd() (*cobra.Command, *rootFlags) {
	defaults := config.Default()
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the payments page renders for a seeded session",
		Long: `Launches a headless browser, seeds a fake session into local storage,
opens the target route and waits for the expected heading. A full page
screenshot is written whether or not the heading appeared.

Every flag can also be set through a VERIFY_* environment variable;
flags win over the environment.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.envHelp {
				return config.Usage()
			}

			scenario, err := config.Load()
			if err != nil {
				return err
			}
			scenario = applyFlags(scenario, cmd.Flags(), flags)
			if err := scenario.Validate(); err != nil {
				return err
			}

			logger := newLogger(flags.verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, scenario, logger, flags.strict)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.baseURL, "base-url", defaults.BaseURL, "origin of the application under test")
	f.StringVar(&flags.loginPath, "login-path", defaults.LoginPath, "route opened before seeding local storage")
	f.StringVar(&flags.targetPath, "target-path", defaults.TargetPath, "route whose rendering is verified")
	f.StringVar(&flags.headingSelector, "heading-selector", defaults.HeadingSelector, "CSS selector of the marker element")
	f.StringVar(&flags.expectedHeading, "expected-heading", defaults.ExpectedHeading, "text the marker element must contain")
	f.IntVar(&flags.waitTimeoutMs, "wait-timeout-ms", defaults.WaitTimeoutMs, "how long to wait for the marker element")
	f.StringVar(&flags.screenshotPath, "screenshot", defaults.ScreenshotPath, "PNG output path, the directory must exist")
	f.StringVar(&flags.browserBin, "browser-bin", "", "browser executable, defaults to CHROME_BIN or a managed download")
	f.BoolVar(&flags.headless, "headless", defaults.Headless, "run the browser without a window")
	f.BoolVar(&flags.strict, "strict", false, "exit with status 2 when the heading is not found")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	f.BoolVar(&flags.envHelp, "env-help", false, "list the supported environment variables and exit")

	return cmd, flags
}

// applyFlags overlays only the flags set on the command line
func applyFlags(s models.Scenario, fs *pflag.FlagSet, flags *rootFlags) models.Scenario {
	if fs.Changed("base-url") {
		s.BaseURL = flags.baseURL
	}
	if fs.Changed("login-path") {
		s.LoginPath = flags.loginPath
	}
	if fs.Changed("target-path") {
		s.TargetPath = flags.targetPath
	}
	if fs.Changed("heading-selector") {
		s.HeadingSelector = flags.headingSelector
	}
	if fs.Changed("expected-heading") {
		s.ExpectedHeading = flags.expectedHeading
	}
	if fs.Changed("wait-timeout-ms") {
		s.WaitTimeoutMs = flags.waitTimeoutMs
	}
	if fs.Changed("screenshot") {
		s.ScreenshotPath = flags.screenshotPath
	}
	if fs.Changed("browser-bin") {
		s.BrowserBin = flags.browserBin
	}
	if fs.Changed("headless") {
		s.Headless = flags.headless
	}
	return s
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&lineFormatter{})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func run(ctx context.Context, scenario models.Scenario, logger *logrus.Logger, strict bool) error {
	v := verifier.New(scenario, verifier.WithLogger(logger))

	result, err := v.Verify(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"outcome":  result.Outcome,
		"duration": result.Duration,
	}).Debug("Verification finished")

	if strict && !result.Confirmed() {
		return &exitError{
			code: exitCodeRenderFailed,
			msg:  fmt.Sprintf("%s not rendered at %s", scenario.ExpectedHeading, result.TargetURL),
		}
	}
	return nil
}
