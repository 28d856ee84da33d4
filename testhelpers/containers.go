package testhelpers

import (
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// readyOnLog waits until line has shown up occurrence times in the container log.
func readyOnLog(line string, occurrence int, timeout time.Duration) testcontainers.CustomizeRequestOption {
	return testcontainers.WithWaitStrategy(
		wait.ForLog(line).
			WithOccurrence(occurrence).
			WithStartupTimeout(timeout),
	)
}
