// Package health aggregates liveness checks over the data layer's remote
// dependencies. There is no HTTP surface; callers poll Check directly.
package health

import (
	"context"
	"sync"
	"time"
)

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report is the aggregate outcome of all registered checks.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Registry holds named dependency checkers. A critical check that fails
// marks the whole report down; non-critical failures are reported but do not.
type Registry struct {
	mu       sync.RWMutex
	critical map[string]Checker
	optional map[string]Checker
}

// NewRegistry creates an empty check registry.
func NewRegistry() *Registry {
	return &Registry{
		critical: make(map[string]Checker),
		optional: make(map[string]Checker),
	}
}

// RegisterCritical adds a checker whose failure marks the report down.
func (r *Registry) RegisterCritical(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.critical[name] = checker
}

// RegisterNonCritical adds a checker whose failure is reported only.
func (r *Registry) RegisterNonCritical(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optional[name] = checker
}

// Check runs every registered checker with a per-check timeout and returns
// the aggregate report.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	critical := make(map[string]Checker, len(r.critical))
	for name, c := range r.critical {
		critical[name] = c
	}
	optional := make(map[string]Checker, len(r.optional))
	for name, c := range r.optional {
		optional[name] = c
	}
	r.mu.RUnlock()

	report := Report{
		Status:    StatusUp,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(critical)+len(optional)),
	}

	run := func(name string, checker Checker, isCritical bool) {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		result := CheckResult{Status: StatusUp}
		if err := checker(checkCtx); err != nil {
			result = CheckResult{Status: StatusDown, Error: err.Error()}
			if isCritical {
				report.Status = StatusDown
			}
		}
		report.Checks[name] = result
	}

	for name, checker := range critical {
		run(name, checker, true)
	}
	for name, checker := range optional {
		run(name, checker, false)
	}

	return report
}
