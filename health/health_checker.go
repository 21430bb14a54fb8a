// Package health provides health checking functionality for the dermacare API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/dermacare-api/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements the HealthChecker interface
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// Dependencies are the components reported on by the health check. Model is empty when no
// model client could be built; Sweeper may be nil.
type Dependencies struct {
	Catalog   interfaces.MedicineCatalog
	Sweeper   interfaces.Scheduler
	Model     string
	UploadDir string
	StartTime time.Time
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	deps Dependencies
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(deps Dependencies) *HealthCheckerImpl {
	if deps.StartTime.IsZero() {
		deps.StartTime = time.Now()
	}
	return &HealthCheckerImpl{deps: deps}
}

// HealthCheck reports healthy when the catalog is loaded and a model is configured.
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	conditions := 0
	keys := []string{}
	if h.deps.Catalog != nil {
		conditions = h.deps.Catalog.Len()
		keys = h.deps.Catalog.Keys()
	}

	switch {
	case conditions == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case h.deps.Model == "":
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	uptime := time.Since(h.deps.StartTime)

	data = map[string]any{
		"catalog_conditions": conditions,
		"condition_keys":     keys,
		"model":              h.deps.Model,
		"upload_dir":         h.deps.UploadDir,
		"uptime_seconds":     math.Round(uptime.Seconds()),
		"start_time":         h.deps.StartTime.Format(time.RFC3339),
	}

	if h.deps.Sweeper != nil {
		if last := h.deps.Sweeper.LastRun(); !last.IsZero() {
			data["last_upload_sweep"] = last.Format(time.RFC3339)
		}
	}

	return status, data, httpStatus
}
