package insurance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bellybank/bellybank/internal/models"
)

func TestMonthlyCost(t *testing.T) {
	tests := []struct {
		name     string
		product  models.InsuranceType
		coverage int64
		want     string
	}{
		{"life per million", models.InsuranceLife, 1_000_000, "5000"},
		{"health per million", models.InsuranceHealth, 1_000_000, "8000"},
		{"property scales with coverage", models.InsuranceProperty, 5_000_000, "15000"},
		{"auto half coverage", models.InsuranceAuto, 500_000, "3000"},
		{"travel per million", models.InsuranceTravel, 1_000_000, "2000"},
		{"unknown product uses default tariff", models.InsuranceType("pet"), 1_000_000, "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := MonthlyCost(tt.product, decimal.NewFromInt(tt.coverage))
			assert.True(t, cost.Equal(decimal.RequireFromString(tt.want)),
				"want %s, got %s", tt.want, cost)
		})
	}
}

func TestTermEndUsesThirtyDayMonths(t *testing.T) {
	start := time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 0, 30), termEnd(start, 1))
	assert.Equal(t, start.AddDate(0, 0, 360), termEnd(start, 12))
	// A calendar-month jump from Jan 31 would land in March; 30-day terms
	// land on March 2nd.
	assert.Equal(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC), termEnd(start, 1))
}
