// Package insurance implements prepaid insurance policies. Premiums are
// tariffed per million of coverage and charged up front for the whole term.
package insurance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/engines"
	"github.com/bellybank/bellybank/internal/models"
	"github.com/bellybank/bellybank/pkg/events"
	"github.com/bellybank/bellybank/pkg/healthcheck"
)

// Monthly premium per 1,000,000 of coverage, by product.
var monthlyTariffs = map[models.InsuranceType]decimal.Decimal{
	models.InsuranceLife:     decimal.NewFromInt(5000),
	models.InsuranceHealth:   decimal.NewFromInt(8000),
	models.InsuranceProperty: decimal.NewFromInt(3000),
	models.InsuranceAuto:     decimal.NewFromInt(6000),
	models.InsuranceTravel:   decimal.NewFromInt(2000),
}

var defaultTariff = decimal.NewFromInt(5000)

var coverageUnit = decimal.NewFromInt(1_000_000)

// Engine manages insurance policies.
type Engine struct {
	db     *pgxpool.Pool
	events events.Publisher
	logger *zap.Logger
}

// NewEngine creates a new insurance engine.
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
		logger: logger.With(zap.String("engine", "insurance")),
	}
}

// MonthlyCost computes the monthly premium for a coverage amount.
func MonthlyCost(insuranceType models.InsuranceType, coverage decimal.Decimal) decimal.Decimal {
	tariff, ok := monthlyTariffs[insuranceType]
	if !ok {
		tariff = defaultTariff
	}
	return coverage.Div(coverageUnit).Mul(tariff).Round(2)
}

// termEnd returns the expiry of a policy started at start. Product terms
// count months as 30 days, like deposit and loan schedules.
func termEnd(start time.Time, termMonths int) time.Time {
	return start.AddDate(0, 0, 30*termMonths)
}

// Apply issues a policy, charging the full term's premium up front from the
// customer's first active account.
func (e *Engine) Apply(ctx context.Context, userID int64, insuranceType models.InsuranceType, coverage decimal.Decimal, termMonths int) (*models.InsurancePolicy, error) {
	if !coverage.IsPositive() || termMonths <= 0 {
		return nil, engines.ErrInvalidAmount
	}

	monthly := MonthlyCost(insuranceType, coverage)
	total := monthly.Mul(decimal.NewFromInt(int64(termMonths)))

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
	if account.Balance.LessThan(total) {
		return nil, engines.ErrInsufficientFunds
	}

	now := time.Now()
	policy := &models.InsurancePolicy{
		UserID:         userID,
		InsuranceType:  insuranceType,
		CoverageAmount: coverage,
		MonthlyCost:    monthly,
		TermMonths:     termMonths,
		StartDate:      now,
		EndDate:        termEnd(now, termMonths),
		IsActive:       true,
	}

	insert := `
		INSERT INTO insurance_policies
			(user_id, insurance_type, coverage_amount, monthly_cost, term_months, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insert,
		policy.UserID, policy.InsuranceType, policy.CoverageAmount, policy.MonthlyCost,
		policy.TermMonths, policy.StartDate, policy.EndDate).Scan(&policy.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert policy: %w", err)
	}

	if err := engines.UpdateBalance(ctx, tx, account.ID, account.Balance.Sub(total)); err != nil {
		return nil, err
	}

	category := fmt.Sprintf("Insurance premium: %s", insuranceType)
	txID, err := engines.RecordTransaction(ctx, tx, &account.ID, nil, total, category)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit policy: %w", err)
	}

	e.logger.Info("Insurance policy issued",
		zap.Int64("policy_id", policy.ID),
		zap.String("type", string(insuranceType)),
		zap.String("premium", total.String()))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		FromAccountID: &account.ID,
		Amount:        total,
		Category:      category,
		Kind:          events.KindInsurance,
		OccurredAt:    time.Now(),
	})

	return policy, nil
}

// ListActive returns the user's active policies.
func (e *Engine) ListActive(ctx context.Context, userID int64) ([]*models.InsurancePolicy, error) {
	query := `
		SELECT id, user_id, insurance_type, coverage_amount, monthly_cost,
		       term_months, start_date, end_date, is_active
		FROM insurance_policies
		WHERE user_id = $1 AND is_active
		ORDER BY start_date DESC
	`

	rows, err := e.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	policies := make([]*models.InsurancePolicy, 0)
	for rows.Next() {
		p := &models.InsurancePolicy{}
		err := rows.Scan(&p.ID, &p.UserID, &p.InsuranceType, &p.CoverageAmount,
			&p.MonthlyCost, &p.TermMonths, &p.StartDate, &p.EndDate, &p.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policies: %w", err)
	}

	return policies, nil
}

// Cancel deactivates a policy. The prepaid premium is not refunded.
func (e *Engine) Cancel(ctx context.Context, userID, policyID int64) error {
	tag, err := e.db.Exec(ctx, `
		UPDATE insurance_policies SET is_active = FALSE
		WHERE id = $1 AND user_id = $2 AND is_active
	`, policyID, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return engines.ErrNotFound
	}

	e.logger.Info("Insurance policy cancelled", zap.Int64("policy_id", policyID))
	return nil
}

// Check returns the health status of the insurance engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	var active int
	err := e.db.QueryRow(ctx, `SELECT COUNT(*) FROM insurance_policies WHERE is_active`).Scan(&active)

	status := healthcheck.StatusHealthy
	message := "Insurance engine is operational"
	if err != nil {
		status = healthcheck.StatusUnhealthy
		message = fmt.Sprintf("Database error: %v", err)
	}

	return &healthcheck.Result{
		ComponentName: "insurance_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       map[string]interface{}{"active_policies": active},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "insurance_engine"
}
