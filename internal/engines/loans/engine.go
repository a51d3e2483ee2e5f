// Package loans implements loan products: application scoring, disbursement,
// payment schedules and installment repayment.
package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/engines"
	"github.com/bellybank/bellybank/internal/models"
	"github.com/bellybank/bellybank/pkg/events"
	"github.com/bellybank/bellybank/pkg/healthcheck"
)

// Annual interest rates per loan product. Zero-rate products are
// installment style plans.
var annualRates = map[models.LoanType]decimal.Decimal{
	models.LoanCash:        decimal.RequireFromString("0.15"),
	models.LoanInstallment: decimal.Zero,
	models.LoanBellyRed:    decimal.Zero,
	models.LoanRed:         decimal.Zero,
	models.LoanMortgage:    decimal.RequireFromString("0.035"),
	models.LoanAuto:        decimal.RequireFromString("0.07"),
}

// Maximum share of declared monthly income a payment may take.
var incomeRatios = map[models.LoanType]decimal.Decimal{
	models.LoanCash:        decimal.RequireFromString("0.3"),
	models.LoanInstallment: decimal.RequireFromString("0.2"),
	models.LoanBellyRed:    decimal.RequireFromString("0.25"),
	models.LoanRed:         decimal.RequireFromString("0.25"),
	models.LoanMortgage:    decimal.RequireFromString("0.4"),
	models.LoanAuto:        decimal.RequireFromString("0.35"),
}

// Engine manages loans.
type Engine struct {
	db     *pgxpool.Pool
	events events.Publisher
	logger *zap.Logger
}

// NewEngine creates a new loans engine.
func NewEngine(db *pgxpool.Pool, publisher events.Publisher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Engine{
		db:     db,
		events: publisher,
		logger: logger.With(zap.String("engine", "loans")),
	}
}

// Application is a loan application.
type Application struct {
	LoanType      models.LoanType `json:"loan_type"`
	Amount        decimal.Decimal `json:"amount"`
	TermMonths    int             `json:"term_months"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	// CollateralValue is required for secured products (mortgage, auto).
	CollateralValue decimal.Decimal `json:"collateral_value,omitempty"`
}

// Offer reports an approved and disbursed loan.
type Offer struct {
	LoanID         int64
	MonthlyPayment decimal.Decimal
	Rate           decimal.Decimal
	FirstDueDate   time.Time
}

// AnnualRate returns the annual interest rate of a loan product. Unknown
// products price at cash-loan terms.
func AnnualRate(loanType models.LoanType) decimal.Decimal {
	if rate, ok := annualRates[loanType]; ok {
		return rate
	}
	return annualRates[models.LoanCash]
}

// incomeRatio returns the payment-to-income cap of a loan product, with the
// cash-loan cap for unknown products.
func incomeRatio(loanType models.LoanType) decimal.Decimal {
	if ratio, ok := incomeRatios[loanType]; ok {
		return ratio
	}
	return incomeRatios[models.LoanCash]
}

// MonthlyPayment computes the annuity payment for a principal at an annual
// rate over a term in months. Zero-rate plans split the principal evenly.
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1), r = annual/12
func MonthlyPayment(principal, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	if annualRate.IsZero() {
		return principal.DivRound(n, 2)
	}

	r := annualRate.DivRound(decimal.NewFromInt(12), 10)
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return payment.Round(2)
}

// secured reports whether a product requires collateral.
func secured(loanType models.LoanType) bool {
	return loanType == models.LoanMortgage || loanType == models.LoanAuto
}

// Apply scores an application and, when approved, disburses the principal to
// the customer's first active account and writes the payment schedule.
func (e *Engine) Apply(ctx context.Context, userID int64, app *Application) (*Offer, error) {
	if !app.Amount.IsPositive() || app.TermMonths <= 0 {
		return nil, engines.ErrInvalidAmount
	}

	rate := AnnualRate(app.LoanType)

	if secured(app.LoanType) && app.CollateralValue.LessThan(app.Amount) {
		return nil, engines.ErrInsufficientCollateral
	}

	payment := MonthlyPayment(app.Amount, rate, app.TermMonths)

	ratio := incomeRatio(app.LoanType)
	if payment.GreaterThan(app.MonthlyIncome.Mul(ratio)) {
		return nil, &engines.InsufficientIncomeError{
			MinIncome: payment.DivRound(ratio, 2),
		}
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := engines.FirstActiveAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	account, err = engines.LockAccount(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}

	loan := &models.Loan{
		UserID:         userID,
		Type:           app.LoanType,
		Amount:         app.Amount,
		TermMonths:     app.TermMonths,
		MonthlyPayment: payment,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}

	insertLoan := `
		INSERT INTO loans (user_id, type, amount, term_months, monthly_payment, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insertLoan,
		loan.UserID, loan.Type, loan.Amount, loan.TermMonths,
		loan.MonthlyPayment, loan.CreatedAt).Scan(&loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert loan: %w", err)
	}

	// One installment every 30 days from disbursement.
	firstDue := time.Now().AddDate(0, 0, 30)
	insertPayment := `
		INSERT INTO loan_payments (loan_id, due_date, amount, is_paid)
		VALUES ($1, $2, $3, FALSE)
	`
	for i := 0; i < app.TermMonths; i++ {
		due := time.Now().AddDate(0, 0, 30*(i+1))
		if _, err := tx.Exec(ctx, insertPayment, loan.ID, due, payment); err != nil {
			return nil, fmt.Errorf("failed to insert loan payment: %w", err)
		}
	}

	if err := engines.UpdateBalance(ctx, tx, account.ID, account.Balance.Add(app.Amount)); err != nil {
		return nil, err
	}

	category := fmt.Sprintf("Loan disbursement: %s", app.LoanType)
	txID, err := engines.RecordTransaction(ctx, tx, nil, &account.ID, app.Amount, category)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit loan: %w", err)
	}

	e.logger.Info("Loan disbursed",
		zap.Int64("loan_id", loan.ID),
		zap.String("loan_type", string(app.LoanType)),
		zap.String("amount", app.Amount.String()),
		zap.String("monthly_payment", payment.String()))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		ToAccountID:   &account.ID,
		Amount:        app.Amount,
		Category:      category,
		Kind:          events.KindLoanDisbursed,
		OccurredAt:    time.Now(),
	})

	return &Offer{
		LoanID:         loan.ID,
		MonthlyPayment: payment,
		Rate:           rate,
		FirstDueDate:   firstDue,
	}, nil
}

// ActiveLoan is a loan together with its outstanding balance.
type ActiveLoan struct {
	*models.Loan
	Remaining decimal.Decimal `json:"remaining"`
}

// ListActive returns the user's open loans with the sum of unpaid installments.
func (e *Engine) ListActive(ctx context.Context, userID int64) ([]*ActiveLoan, error) {
	query := `
		SELECT l.id, l.user_id, l.type, l.amount, l.term_months,
		       l.monthly_payment, l.is_active, l.created_at,
		       COALESCE((SELECT SUM(p.amount) FROM loan_payments p WHERE p.loan_id = l.id AND NOT p.is_paid), 0)
		FROM loans l
		WHERE l.user_id = $1 AND l.is_active
		ORDER BY l.created_at DESC
	`

	rows, err := e.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	loans := make([]*ActiveLoan, 0)
	for rows.Next() {
		loan := &ActiveLoan{Loan: &models.Loan{}}
		err := rows.Scan(&loan.ID, &loan.UserID, &loan.Type, &loan.Amount,
			&loan.TermMonths, &loan.MonthlyPayment, &loan.IsActive,
			&loan.CreatedAt, &loan.Remaining)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loans: %w", err)
	}

	return loans, nil
}

// PaymentCalendar returns the total amount due per date across the user's
// open loans, keyed by ISO date.
func (e *Engine) PaymentCalendar(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	query := `
		SELECT p.due_date, SUM(p.amount)
		FROM loan_payments p
		JOIN loans l ON l.id = p.loan_id
		WHERE l.user_id = $1 AND l.is_active AND NOT p.is_paid
		GROUP BY p.due_date
	`

	rows, err := e.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment calendar: %w", err)
	}
	defer rows.Close()

	calendar := make(map[string]decimal.Decimal)
	for rows.Next() {
		var due time.Time
		var amount decimal.Decimal
		if err := rows.Scan(&due, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan calendar entry: %w", err)
		}
		calendar[due.Format("2006-01-02")] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar: %w", err)
	}

	return calendar, nil
}

// PayInstallment pays the earliest unpaid installment of a loan from the
// customer's first active account. When the last installment is paid the
// loan is closed.
func (e *Engine) PayInstallment(ctx context.Context, userID, loanID int64) (*models.LoanPayment, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT TRUE FROM loans WHERE id = $1 AND user_id = $2 AND is_active`,
		loanID, userID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engines.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up loan: %w", err)
	}

	payment := &models.LoanPayment{LoanID: loanID}
	err = tx.QueryRow(ctx, `
		SELECT id, due_date, amount
		FROM loan_payments
		WHERE loan_id = $1 AND NOT is_paid
		ORDER BY due_date
		LIMIT 1
		FOR UPDATE
	`, loanID).Scan(&payment.ID, &payment.DueDate, &payment.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engines.ErrAllInstallmentsPaid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up installment: %w", err)
	}

	account, err := engines.FirstActiveAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	account, err = engines.LockAccount(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if account.Balance.LessThan(payment.Amount) {
		return nil, engines.ErrInsufficientFunds
	}

	if err := engines.UpdateBalance(ctx, tx, account.ID, account.Balance.Sub(payment.Amount)); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE loan_payments SET is_paid = TRUE WHERE id = $1`, payment.ID); err != nil {
		return nil, fmt.Errorf("failed to mark installment paid: %w", err)
	}
	payment.IsPaid = true

	var remaining int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM loan_payments WHERE loan_id = $1 AND NOT is_paid`,
		loanID).Scan(&remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to count remaining installments: %w", err)
	}
	if remaining == 0 {
		if _, err := tx.Exec(ctx, `UPDATE loans SET is_active = FALSE WHERE id = $1`, loanID); err != nil {
			return nil, fmt.Errorf("failed to close loan: %w", err)
		}
	}

	category := fmt.Sprintf("Loan payment #%d", loanID)
	txID, err := engines.RecordTransaction(ctx, tx, &account.ID, nil, payment.Amount, category)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit loan payment: %w", err)
	}

	e.logger.Info("Loan installment paid",
		zap.Int64("loan_id", loanID),
		zap.Int64("payment_id", payment.ID),
		zap.Bool("loan_closed", remaining == 0))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		FromAccountID: &account.ID,
		Amount:        payment.Amount,
		Category:      category,
		Kind:          events.KindLoanPayment,
		OccurredAt:    time.Now(),
	})

	return payment, nil
}

// Check returns the health status of the loans engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	var active int
	err := e.db.QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE is_active`).Scan(&active)

	status := healthcheck.StatusHealthy
	message := "Loans engine is operational"
	if err != nil {
		status = healthcheck.StatusUnhealthy
		message = fmt.Sprintf("Database error: %v", err)
	}

	return &healthcheck.Result{
		ComponentName: "loans_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       map[string]interface{}{"active_loans": active},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "loans_engine"
}
