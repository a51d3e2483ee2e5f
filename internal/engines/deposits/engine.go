// Package deposits implements fixed-term savings deposits with simple
// interest. Early closure returns the principal only.
package deposits

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

// Annual interest rates per deposit product.
var annualRates = map[models.DepositType]decimal.Decimal{
	models.DepositStandard: decimal.RequireFromString("0.12"),
	models.DepositPremium:  decimal.RequireFromString("0.14"),
	models.DepositVIP:      decimal.RequireFromString("0.16"),
}

// Engine manages deposits.
type Engine struct {
	db     *pgxpool.Pool
	events events.Publisher
	logger *zap.Logger
}

// NewEngine creates a new deposits engine.
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
		logger: logger.With(zap.String("engine", "deposits")),
	}
}

// AnnualRate returns the annual interest rate of a deposit product,
// defaulting to the standard rate for unknown types.
func AnnualRate(depositType models.DepositType) decimal.Decimal {
	if rate, ok := annualRates[depositType]; ok {
		return rate
	}
	return annualRates[models.DepositStandard]
}

// EstimatedIncome computes simple interest over the full term:
// amount * rate * term / 12.
func EstimatedIncome(amount, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	return amount.Mul(annualRate).
		Mul(decimal.NewFromInt(int64(termMonths))).
		DivRound(decimal.NewFromInt(12), 2)
}

// Placement reports an opened deposit.
type Placement struct {
	Deposit         *models.Deposit
	EstimatedIncome decimal.Decimal
}

// Create opens a deposit by debiting the customer's first active account.
// Terms are counted in 30-day months from the opening date.
func (e *Engine) Create(ctx context.Context, userID int64, depositType models.DepositType, amount decimal.Decimal, termMonths int) (*Placement, error) {
	if !amount.IsPositive() || termMonths <= 0 {
		return nil, engines.ErrInvalidAmount
	}

	rate := AnnualRate(depositType)

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
	if account.Balance.LessThan(amount) {
		return nil, engines.ErrInsufficientFunds
	}

	now := time.Now()
	deposit := &models.Deposit{
		UserID:     userID,
		Amount:     amount,
		Rate:       rate,
		TermMonths: termMonths,
		Type:       depositType,
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, 30*termMonths),
		IsActive:   true,
	}

	insert := `
		INSERT INTO deposits (user_id, amount, rate, term_months, type, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insert,
		deposit.UserID, deposit.Amount, deposit.Rate, deposit.TermMonths,
		deposit.Type, deposit.StartDate, deposit.EndDate).Scan(&deposit.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert deposit: %w", err)
	}

	if err := engines.UpdateBalance(ctx, tx, account.ID, account.Balance.Sub(amount)); err != nil {
		return nil, err
	}

	category := fmt.Sprintf("Deposit opened: %s", depositType)
	txID, err := engines.RecordTransaction(ctx, tx, &account.ID, nil, amount, category)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit deposit: %w", err)
	}

	e.logger.Info("Deposit opened",
		zap.Int64("deposit_id", deposit.ID),
		zap.String("type", string(depositType)),
		zap.String("amount", amount.String()))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		FromAccountID: &account.ID,
		Amount:        amount,
		Category:      category,
		Kind:          events.KindDepositOpened,
		OccurredAt:    time.Now(),
	})

	return &Placement{
		Deposit:         deposit,
		EstimatedIncome: EstimatedIncome(amount, rate, termMonths),
	}, nil
}

// ActiveDeposit is a deposit together with the interest accrued so far.
type ActiveDeposit struct {
	*models.Deposit
	AccruedInterest decimal.Decimal `json:"accrued_interest"`
}

// AccruedInterest computes simple interest from the start date until now,
// in 30-day months: amount * rate * (days/30) / 12.
func AccruedInterest(amount, annualRate decimal.Decimal, start, now time.Time) decimal.Decimal {
	days := int64(now.Sub(start).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return amount.Mul(annualRate).
		Mul(decimal.NewFromInt(days)).
		DivRound(decimal.NewFromInt(30*12), 2)
}

// ListActive returns the user's open deposits with interest accrued to date.
func (e *Engine) ListActive(ctx context.Context, userID int64) ([]*ActiveDeposit, error) {
	query := `
		SELECT id, user_id, amount, rate, term_months, type, start_date, end_date, is_active
		FROM deposits
		WHERE user_id = $1 AND is_active
		ORDER BY start_date DESC
	`

	rows, err := e.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	deposits := make([]*ActiveDeposit, 0)
	for rows.Next() {
		d := &ActiveDeposit{Deposit: &models.Deposit{}}
		err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.Rate, &d.TermMonths,
			&d.Type, &d.StartDate, &d.EndDate, &d.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		d.AccruedInterest = AccruedInterest(d.Amount, d.Rate, d.StartDate, now)
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return deposits, nil
}

// CloseEarly closes an active deposit and returns the principal to the
// customer's first active account. Accrued interest is forfeited.
func (e *Engine) CloseEarly(ctx context.Context, userID, depositID int64) (decimal.Decimal, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var amount decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT amount FROM deposits
		WHERE id = $1 AND user_id = $2 AND is_active
		FOR UPDATE
	`, depositID, userID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, engines.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to look up deposit: %w", err)
	}

	account, err := engines.FirstActiveAccount(ctx, tx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	account, err = engines.LockAccount(ctx, tx, account.ID)
	if err != nil {
		return decimal.Zero, err
	}

	if _, err := tx.Exec(ctx, `UPDATE deposits SET is_active = FALSE WHERE id = $1`, depositID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to close deposit: %w", err)
	}
	if err := engines.UpdateBalance(ctx, tx, account.ID, account.Balance.Add(amount)); err != nil {
		return decimal.Zero, err
	}

	category := fmt.Sprintf("Deposit closed early #%d", depositID)
	txID, err := engines.RecordTransaction(ctx, tx, nil, &account.ID, amount, category)
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit deposit closure: %w", err)
	}

	e.logger.Info("Deposit closed early",
		zap.Int64("deposit_id", depositID),
		zap.String("returned", amount.String()))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		ToAccountID:   &account.ID,
		Amount:        amount,
		Category:      category,
		Kind:          events.KindDepositClosed,
		OccurredAt:    time.Now(),
	})

	return amount, nil
}

// Check returns the health status of the deposits engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	var active int
	err := e.db.QueryRow(ctx, `SELECT COUNT(*) FROM deposits WHERE is_active`).Scan(&active)

	status := healthcheck.StatusHealthy
	message := "Deposits engine is operational"
	if err != nil {
		status = healthcheck.StatusUnhealthy
		message = fmt.Sprintf("Database error: %v", err)
	}

	return &healthcheck.Result{
		ComponentName: "deposits_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       map[string]interface{}{"active_deposits": active},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "deposits_engine"
}
