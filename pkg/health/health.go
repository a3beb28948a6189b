// Package health implements the liveness and readiness endpoints. Readiness
// aggregates registered dependency checks; only critical dependencies can
// fail the probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Response is the JSON body returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single dependency check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type check struct {
	fn       Checker
	critical bool
}

// Handler provides HTTP health check endpoints.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]check
}

// NewHandler creates a health handler with no registered checks.
func NewHandler() *Handler {
	return &Handler{
		checks: make(map[string]check),
	}
}

// Register adds a named dependency check that fails readiness when down.
func (h *Handler) Register(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterCritical is an explicit alias of Register for call sites that mix
// critical and non-critical checks.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterNonCritical adds a check that is reported but does not fail
// readiness. Use it for dependencies the service degrades without, such as
// the event bus or the rate-limit store.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.register(name, checker, false)
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: checker, critical: critical}
}

// LivenessHandler reports that the process is running. It never fails.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs all registered checks concurrently. A failing
// critical check returns 503; a failing non-critical check degrades the
// reported status but keeps the probe at 200.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		h.mu.RLock()
		checks := make(map[string]check, len(h.checks))
		for k, v := range h.checks {
			checks[k] = v
		}
		h.mu.RUnlock()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			results = make(map[string]CheckResult, len(checks))

			criticalDown bool
			anyDown      bool
		)

		for name, c := range checks {
			wg.Add(1)
			go func(name string, c check) {
				defer wg.Done()
				err := c.fn(ctx)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					results[name] = CheckResult{Status: StatusDown, Critical: c.critical, Error: err.Error()}
					anyDown = true
					if c.critical {
						criticalDown = true
					}
				} else {
					results[name] = CheckResult{Status: StatusUp, Critical: c.critical}
				}
			}(name, c)
		}
		wg.Wait()

		overall := StatusUp
		code := http.StatusOK
		switch {
		case criticalDown:
			overall = StatusDown
			code = http.StatusServiceUnavailable
		case anyDown:
			overall = StatusDegraded
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(Response{
			Status:    overall,
			Timestamp: time.Now().UTC(),
			Checks:    results,
		})
	}
}
