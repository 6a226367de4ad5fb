package sizing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks structurally invalid sizing input, such as a
// non-positive user count or latency.
var ErrInvalidInput = errors.New("invalid sizing input")

// ErrInvalidTarget marks a latency target below the model's base latency.
// No device can meet it, since latency factors only inflate latency.
var ErrInvalidTarget = errors.New("latency target below model base latency")

// floatSlack absorbs division artifacts such as 0.3/0.1 = 2.999... so a
// whole multiple of the base latency counts fully.
const floatSlack = 1e-9

// EffectiveConcurrency converts a latency budget into the number of
// requests one device serves concurrently: one request per whole multiple
// of the base latency that fits in the budget, never less than 1.
func EffectiveConcurrency(baseLatencySeconds, latencyTargetMs float64) (int, error) {
	if baseLatencySeconds <= 0 {
		return 0, fmt.Errorf("%w: base latency %.3fs", ErrInvalidInput, baseLatencySeconds)
	}
	if latencyTargetMs <= 0 {
		return 0, fmt.Errorf("%w: latency target %.1fms", ErrInvalidInput, latencyTargetMs)
	}
	targetSeconds := latencyTargetMs / 1000
	if targetSeconds < baseLatencySeconds {
		return 0, fmt.Errorf("%w: target %.3fs, base %.3fs", ErrInvalidTarget, targetSeconds, baseLatencySeconds)
	}
	rpd := int(math.Floor(targetSeconds/baseLatencySeconds + floatSlack))
	if rpd < 1 {
		rpd = 1
	}
	return rpd, nil
}

// RequiredDeviceCount returns how many devices serve the given users at
// the per-device concurrency. Always >= 1.
func RequiredDeviceCount(users, requestsPerDevice int) int {
	if requestsPerDevice < 1 {
		requestsPerDevice = 1
	}
	count := (users + requestsPerDevice - 1) / requestsPerDevice
	if count < 1 {
		count = 1
	}
	return count
}
