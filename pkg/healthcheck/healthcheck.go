// Package healthcheck provides interfaces and types for component health
// monitoring, aggregated by the /health endpoint.
package healthcheck

import (
	"context"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is functioning normally
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is functioning but with issues
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not functioning properly
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the health status cannot be determined
	StatusUnknown Status = "unknown"
)

// Result contains the health check result for a component.
type Result struct {
	ComponentName string                 `json:"component"`
	Status        Status                 `json:"status"`
	Message       string                 `json:"message,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Checker is the interface components implement for health checking.
type Checker interface {
	Check(ctx context.Context) *Result
	Name() string
}

// AggregatedResult contains health results from multiple components.
type AggregatedResult struct {
	OverallStatus Status             `json:"status"`
	Components    map[string]*Result `json:"components"`
	Timestamp     time.Time          `json:"timestamp"`
}

// IsHealthy returns true if the overall status is healthy.
func (ar *AggregatedResult) IsHealthy() bool {
	return ar.OverallStatus == StatusHealthy
}

// Aggregate runs every checker and folds the results into an overall status.
func Aggregate(ctx context.Context, checkers ...Checker) *AggregatedResult {
	components := make(map[string]*Result, len(checkers))
	for _, checker := range checkers {
		components[checker.Name()] = checker.Check(ctx)
	}

	return &AggregatedResult{
		OverallStatus: DetermineOverallStatus(components),
		Components:    components,
		Timestamp:     time.Now(),
	}
}

// DetermineOverallStatus calculates the overall status from component results.
func DetermineOverallStatus(results map[string]*Result) Status {
	if len(results) == 0 {
		return StatusUnknown
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded, StatusUnknown:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
