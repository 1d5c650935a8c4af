package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv, when truthy, makes the binaries return before dialing Postgres,
// Redis or Kafka so `go test ./...` can import them.
const TestModeEnv = "ORION_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func loadTestMode() {
	enabled, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(err == nil && enabled)
}

// InTestMode reports whether startup side effects are disabled.
func InTestMode() bool {
	testModeOnce.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	loadTestMode()
}
