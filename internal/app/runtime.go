package app

import (
	"log/slog"
	"os"
	"strconv"
)

// TestModeEnv names the variable that stops binaries from connecting to
// Postgres, Redis or the network when set to a true value.
const TestModeEnv = "STOREHQ_TEST_MODE"

// InTestMode reports whether TestModeEnv is set to a true value.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}

// SkipStartup logs and reports true when the named binary must not start.
func SkipStartup(name string) bool {
	if !InTestMode() {
		return false
	}
	slog.Info("test mode, skipping startup", slog.String("binary", name))
	return true
}
