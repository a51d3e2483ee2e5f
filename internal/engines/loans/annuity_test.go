package loans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bellybank/bellybank/internal/models"
)

func TestMonthlyPaymentZeroRate(t *testing.T) {
	payment := MonthlyPayment(decimal.NewFromInt(120000), decimal.Zero, 12)
	assert.True(t, payment.Equal(decimal.NewFromInt(10000)),
		"zero-rate plan splits the principal evenly, got %s", payment)
}

func TestMonthlyPaymentAnnuity(t *testing.T) {
	// 100,000 at 15% annual over 12 months: the annuity formula gives a
	// payment just above 9,025.
	payment := MonthlyPayment(decimal.NewFromInt(100000), decimal.RequireFromString("0.15"), 12)

	assert.True(t, payment.GreaterThan(decimal.NewFromInt(9025)), "payment %s too low", payment)
	assert.True(t, payment.LessThan(decimal.NewFromInt(9027)), "payment %s too high", payment)
	assert.Equal(t, int32(-2), payment.Exponent(), "payment should be rounded to cents")
}

func TestMonthlyPaymentCoversPrincipal(t *testing.T) {
	principal := decimal.NewFromInt(500000)

	for _, term := range []int{6, 12, 24, 60} {
		payment := MonthlyPayment(principal, decimal.RequireFromString("0.07"), term)
		total := payment.Mul(decimal.NewFromInt(int64(term)))
		assert.True(t, total.GreaterThan(principal),
			"term %d: total repaid %s must exceed principal", term, total)
	}
}

func TestMonthlyPaymentIncreasesWithRate(t *testing.T) {
	principal := decimal.NewFromInt(1000000)
	low := MonthlyPayment(principal, decimal.RequireFromString("0.035"), 120)
	high := MonthlyPayment(principal, decimal.RequireFromString("0.15"), 120)

	assert.True(t, high.GreaterThan(low))
}

func TestAnnualRate(t *testing.T) {
	rate := AnnualRate(models.LoanCash)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.15")))

	rate = AnnualRate(models.LoanInstallment)
	assert.True(t, rate.IsZero())
}

func TestUnknownProductPricesAtCashTerms(t *testing.T) {
	rate := AnnualRate(models.LoanType("payday"))
	assert.True(t, rate.Equal(annualRates[models.LoanCash]),
		"unknown product must price at the cash rate, got %s", rate)

	ratio := incomeRatio(models.LoanType("payday"))
	assert.True(t, ratio.Equal(incomeRatios[models.LoanCash]),
		"unknown product must use the cash income cap, got %s", ratio)
}

func TestSecuredProducts(t *testing.T) {
	assert.True(t, secured(models.LoanMortgage))
	assert.True(t, secured(models.LoanAuto))
	assert.False(t, secured(models.LoanCash))
	assert.False(t, secured(models.LoanInstallment))
}

func TestIncomeRatioCoversEveryProduct(t *testing.T) {
	for loanType := range annualRates {
		_, ok := incomeRatios[loanType]
		assert.True(t, ok, "missing income ratio for %s", loanType)
	}
}
