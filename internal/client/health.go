package client

import "sync/atomic"

// circuitBreakerThreshold is the number of consecutive send failures after
// which a client's sends are skipped rather than retried.
const circuitBreakerThreshold = 50

// circuitBreakerProbeInterval sets the probe cadence once the breaker has
// tripped: every circuitBreakerProbeInterval-th send is attempted as a probe,
// so circuitBreakerProbeInterval-1 sends are skipped between probes.
const circuitBreakerProbeInterval = 25

// sendHealth tracks consecutive send failures for one client's socket and
// decides whether to skip an attempted send outright, the way a broadcast
// fan-out avoids hammering a socket that is clearly gone without blocking
// the rest of the fan-out on it.
type sendHealth struct {
	failures atomic.Int64
	skips    atomic.Int64
}

// shouldSkip reports whether the next send should be skipped without being
// attempted at all (breaker tripped and not yet due for a probe).
func (h *sendHealth) shouldSkip() bool {
	if h.failures.Load() < circuitBreakerThreshold {
		return false
	}
	skips := h.skips.Add(1)
	return skips%circuitBreakerProbeInterval != 0
}

func (h *sendHealth) recordFailure() { h.failures.Add(1) }

func (h *sendHealth) recordSuccess() {
	h.failures.Store(0)
	h.skips.Store(0)
}
