package debug

import (
	"log"
	"os"
	"testing"
)

// TestLogToStderr configures debug to log to stderr if the debug log is not
// already configured and returns whether logging was enabled.
func TestLogToStderr(_ testing.TB) bool {
	if state.enabled {
		return false
	}
	state.logger = log.New(os.Stderr, "", log.LstdFlags)
	state.enabled = true
	return true
}

// TestDisableLog turns the debug log off again.
func TestDisableLog(_ testing.TB) {
	state.logger = nil
	state.enabled = false
}
