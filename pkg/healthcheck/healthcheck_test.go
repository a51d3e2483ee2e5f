package healthcheck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker reports a fixed status.
type stubChecker struct {
	name   string
	status Status
}

func (s *stubChecker) Name() string { return s.name }

func (s *stubChecker) Check(ctx context.Context) *Result {
	return &Result{
		ComponentName: s.name,
		Status:        s.status,
		Timestamp:     time.Now(),
	}
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"no components", nil, StatusUnknown},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unknown counts as degraded", []Status{StatusHealthy, StatusUnknown}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(map[string]*Result, len(tt.statuses))
			for i, status := range tt.statuses {
				name := string(rune('a' + i))
				results[name] = &Result{ComponentName: name, Status: status}
			}
			assert.Equal(t, tt.want, DetermineOverallStatus(results))
		})
	}
}

func TestAggregate(t *testing.T) {
	result := Aggregate(context.Background(),
		&stubChecker{name: "accounts", status: StatusHealthy},
		&stubChecker{name: "transfers", status: StatusHealthy},
		&stubChecker{name: "loans", status: StatusUnhealthy},
	)

	require.Len(t, result.Components, 3)
	assert.Equal(t, StatusUnhealthy, result.OverallStatus)
	assert.False(t, result.IsHealthy())
	assert.Equal(t, StatusHealthy, result.Components["accounts"].Status)
	assert.Equal(t, StatusUnhealthy, result.Components["loans"].Status)
}
