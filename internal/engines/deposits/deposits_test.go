package deposits

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bellybank/bellybank/internal/models"
)

func TestAnnualRate(t *testing.T) {
	assert.True(t, AnnualRate(models.DepositStandard).Equal(decimal.RequireFromString("0.12")))
	assert.True(t, AnnualRate(models.DepositPremium).Equal(decimal.RequireFromString("0.14")))
	assert.True(t, AnnualRate(models.DepositVIP).Equal(decimal.RequireFromString("0.16")))

	// Unknown products fall back to the standard rate.
	assert.True(t, AnnualRate(models.DepositType("platinum")).Equal(decimal.RequireFromString("0.12")))
}

func TestEstimatedIncome(t *testing.T) {
	// 100,000 at 12% for 12 months earns 12,000.
	income := EstimatedIncome(decimal.NewFromInt(100000), decimal.RequireFromString("0.12"), 12)
	assert.True(t, income.Equal(decimal.NewFromInt(12000)), "got %s", income)

	// Half a year earns half.
	income = EstimatedIncome(decimal.NewFromInt(100000), decimal.RequireFromString("0.12"), 6)
	assert.True(t, income.Equal(decimal.NewFromInt(6000)), "got %s", income)
}

func TestAccruedInterest(t *testing.T) {
	amount := decimal.NewFromInt(100000)
	rate := decimal.RequireFromString("0.12")
	now := time.Now()

	// 30 days into a 12% deposit: one month of interest, 1,000.
	accrued := AccruedInterest(amount, rate, now.AddDate(0, 0, -30), now)
	assert.True(t, accrued.Equal(decimal.NewFromInt(1000)), "got %s", accrued)

	// Nothing accrues before the start date.
	accrued = AccruedInterest(amount, rate, now.AddDate(0, 0, 1), now)
	assert.True(t, accrued.IsZero(), "got %s", accrued)
}
