// Package models defines the core domain types of the banking service.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the ISO-style currency code of an account.
type Currency string

const (
	CurrencyKZT Currency = "KZT"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Role is the access level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a bank customer identified by phone number.
type User struct {
	ID           int64     `json:"id"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account is a card account holding a balance in a single currency.
type Account struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	CardNumber string          `json:"card_number"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   Currency        `json:"currency"`
	IsBlocked  bool            `json:"is_blocked"`
}

// Transaction records a single money movement. FromAccountID is nil for
// credits originating outside the bank (loan disbursement, deposit payout);
// ToAccountID is nil for debits leaving the bank (external transfer, service
// settlement without an internal account).
type Transaction struct {
	ID            int64           `json:"id"`
	FromAccountID *int64          `json:"from_account_id"`
	ToAccountID   *int64          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Favorite is a saved transfer destination shown as a quick action.
type Favorite struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"-"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	Type       string `json:"type"`
	ColorStart string `json:"-"`
	ColorEnd   string `json:"-"`
}

// LoanType selects the rate and scoring profile of a loan product.
type LoanType string

const (
	LoanCash        LoanType = "cash"
	LoanInstallment LoanType = "installment"
	LoanBellyRed    LoanType = "bellyred"
	LoanRed         LoanType = "red" // alias for bellyred
	LoanMortgage    LoanType = "mortgage"
	LoanAuto        LoanType = "auto"
)

// Loan is an approved credit with a fixed monthly annuity payment.
type Loan struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	TermMonths     int             `json:"term_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	Type           LoanType        `json:"type"`
	CreatedAt      time.Time       `json:"created_at"`
	IsActive       bool            `json:"is_active"`
}

// LoanPayment is one installment in a loan repayment schedule.
type LoanPayment struct {
	ID      int64           `json:"id"`
	LoanID  int64           `json:"loan_id"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	IsPaid  bool            `json:"is_paid"`
}

// DepositType selects the interest rate of a deposit product.
type DepositType string

const (
	DepositStandard DepositType = "standard"
	DepositPremium  DepositType = "premium"
	DepositVIP      DepositType = "vip"
)

// Deposit is a fixed-term savings placement accruing simple interest.
type Deposit struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	TermMonths int             `json:"term_months"`
	Type       DepositType     `json:"type"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	IsActive   bool            `json:"is_active"`
}

// InsuranceType selects the tariff of an insurance product.
type InsuranceType string

const (
	InsuranceLife     InsuranceType = "life"
	InsuranceHealth   InsuranceType = "health"
	InsuranceProperty InsuranceType = "property"
	InsuranceAuto     InsuranceType = "auto"
	InsuranceTravel   InsuranceType = "travel"
)

// InsurancePolicy is an active insurance contract paid up front for its term.
type InsurancePolicy struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	InsuranceType  InsuranceType   `json:"insurance_type"`
	CoverageAmount decimal.Decimal `json:"coverage_amount"`
	MonthlyCost    decimal.Decimal `json:"monthly_cost"`
	TermMonths     int             `json:"term_months"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	IsActive       bool            `json:"is_active"`
}
