package exchange

import (
	"sync/atomic"
	"time"
)

// HealthTracker records request outcomes for a quote source. The zero value
// is ready to use.
type HealthTracker struct {
	health atomic.Value // stores HealthStatus
}

// Health returns a copy of the current status
func (h *HealthTracker) Health() HealthStatus {
	if status, ok := h.health.Load().(HealthStatus); ok {
		return status
	}
	return HealthStatus{}
}

// RecordSuccess counts a request that produced a snapshot
func (h *HealthTracker) RecordSuccess() {
	status := h.Health()
	status.RequestCount++
	status.LastSuccess = time.Now()
	h.health.Store(status)
}

// RecordError counts a failed request
func (h *HealthTracker) RecordError(err error) {
	status := h.Health()
	status.RequestCount++
	status.ErrorCount++
	if err != nil {
		status.LastError = err.Error()
	}
	h.health.Store(status)
}
