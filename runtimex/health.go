package runtimex

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"go.eggybyte.com/egg/core/errors"
	"go.eggybyte.com/egg/runtimex/internal"
)

// HealthStatus is the outcome of a check or a report.
type HealthStatus int

// Health statuses, from best to worst.
const (
	StatusHealthy   HealthStatus = internal.StatusHealthy
	StatusDegraded  HealthStatus = internal.StatusDegraded
	StatusUnhealthy HealthStatus = internal.StatusUnhealthy
)

// String returns Healthy, Degraded or Unhealthy.
func (s HealthStatus) String() string {
	switch s {
	case StatusHealthy:
		return "Healthy"
	case StatusDegraded:
		return "Degraded"
	default:
		return "Unhealthy"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s HealthStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HealthResult is what a check returns.
type HealthResult struct {
	Status      HealthStatus
	Description string
	Err         error
}

// Healthy returns a passing result.
func Healthy(description ...string) HealthResult {
	r := HealthResult{Status: StatusHealthy}
	if len(description) > 0 {
		r.Description = description[0]
	}
	return r
}

// Degraded returns a result that still serves traffic.
func Degraded(description string) HealthResult {
	return HealthResult{Status: StatusDegraded, Description: description}
}

// Unhealthy returns a failing result carrying err.
func Unhealthy(err error) HealthResult {
	r := HealthResult{Status: StatusUnhealthy, Err: err}
	if err != nil {
		r.Description = err.Error()
	}
	return r
}

// CheckFunc performs one health check. It should honor ctx deadlines.
type CheckFunc func(ctx context.Context) HealthResult

// CheckInfo describes a registered check.
type CheckInfo struct {
	Name string
	Tags []string
}

// HasTag reports whether the check carries tag.
func (c CheckInfo) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// Filter selects checks. A nil Filter selects every check.
type Filter func(CheckInfo) bool

// Tagged selects checks carrying tag.
func Tagged(tag string) Filter {
	return func(c CheckInfo) bool { return c.HasTag(tag) }
}

// HealthEntry is one check's result in a report.
type HealthEntry struct {
	Status      HealthStatus  `json:"status"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration"`
	Tags        []string      `json:"tags,omitempty"`
}

// HealthReport aggregates the results of the selected checks. Its status is
// the worst entry status, Healthy when no check ran.
type HealthReport struct {
	Status   HealthStatus           `json:"status"`
	Duration time.Duration          `json:"duration"`
	Entries  map[string]HealthEntry `json:"entries"`
}

// HealthRegistry holds named checks. Each host owns its registry.
type HealthRegistry struct {
	reg internal.Registry
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{}
}

// AddCheck registers fn under name. Names are unique: a second registration
// fails with CodeAlreadyExists and leaves the first in place.
func (h *HealthRegistry) AddCheck(name string, fn CheckFunc, tags ...string) error {
	if name == "" || fn == nil {
		return errors.New(errors.CodeInvalidArgument, "health check needs a name and a function")
	}
	ok := h.reg.Add(internal.Check{
		Name: name,
		Tags: tags,
		Fn: func(ctx context.Context) internal.Result {
			r := fn(ctx)
			return internal.Result{Status: int(r.Status), Description: r.Description, Err: r.Err}
		},
	})
	if !ok {
		return errors.Newf(errors.CodeAlreadyExists, "health check %q already registered", name)
	}
	return nil
}

// Checks lists the registered checks in registration order.
func (h *HealthRegistry) Checks() []CheckInfo {
	checks := h.reg.Snapshot()
	out := make([]CheckInfo, len(checks))
	for i, c := range checks {
		out[i] = CheckInfo{Name: c.Name, Tags: slices.Clone(c.Tags)}
	}
	return out
}

// Check runs the checks selected by filter concurrently.
func (h *HealthRegistry) Check(ctx context.Context, filter Filter) HealthReport {
	var selected []internal.Check
	for _, c := range h.reg.Snapshot() {
		if filter == nil || filter(CheckInfo{Name: c.Name, Tags: c.Tags}) {
			selected = append(selected, c)
		}
	}

	start := time.Now()
	results := internal.Run(ctx, selected)
	report := HealthReport{
		Status:   StatusHealthy,
		Duration: time.Since(start),
		Entries:  make(map[string]HealthEntry, len(selected)),
	}
	for i, c := range selected {
		r := results[i]
		status := HealthStatus(r.Status)
		desc := r.Description
		if desc == "" && r.Err != nil {
			desc = r.Err.Error()
		}
		report.Entries[c.Name] = HealthEntry{Status: status, Description: desc, Duration: r.Duration, Tags: c.Tags}
		if status > report.Status {
			report.Status = status
		}
	}
	return report
}

// HandlerFor serves the report for filter as JSON. Unhealthy reports answer
// 503; healthy and degraded ones answer 200.
func (h *HealthRegistry) HandlerFor(filter Filter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context(), filter)
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	})
}
