// Package services implements bill and service payments: mobile top-ups,
// utilities, transport cards, fines and the super-app extras. Each service
// category settles into a dedicated internal account that is created lazily.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// settlement identifies the internal account a service category settles into.
type settlement struct {
	Phone string
	Name  string
	Card  string
}

// directory maps service categories to their settlement identities.
var directory = map[string]settlement{
	"mobile":        {Phone: "srv_mobile", Name: "Mobile Hub", Card: "MOB_001"},
	"utilities":     {Phone: "srv_util", Name: "Utility Center", Card: "UTL_001"},
	"transport":     {Phone: "srv_trans", Name: "City Transport", Card: "TRN_001"},
	"fines":         {Phone: "srv_fines", Name: "Gov Fines", Card: "GOV_001"},
	"internet_tv":   {Phone: "srv_inet", Name: "Internet Providers", Card: "INET_ACC"},
	"education":     {Phone: "srv_edu", Name: "Education Hub", Card: "EDU_ACC"},
	"games":         {Phone: "srv_games", Name: "Game Stores", Card: "GAM_001"},
	"tickets":       {Phone: "srv_ticket", Name: "Ticketon", Card: "TICKET_ACC"},
	"shopping":      {Phone: "srv_shop", Name: "E-Commerce", Card: "SHOP_ACC"},
	"entertainment": {Phone: "srv_fun", Name: "Entertainment", Card: "FUN_ACC"},
	"classifieds":   {Phone: "srv_ads", Name: "Ads Platform", Card: "ADS_001"},
	"beauty":        {Phone: "srv_beauty", Name: "Beauty Hub", Card: "BTY_001"},
	"finance":       {Phone: "srv_fin", Name: "Fin Services", Card: "FIN_001"},
	"eco_tree":      {Phone: "srv_eco", Name: "Eco Fund KZ", Card: "ECO_001"},
	"ortak":         {Phone: "srv_ortak", Name: "P2P Split System", Card: "ORTAK_001"},
	"other":         {Phone: "srv_other", Name: "Other Services", Card: "OTH_001"},
}

// Engine executes service payments.
type Engine struct {
	db     *pgxpool.Pool
	events events.Publisher
	logger *zap.Logger
}

// NewEngine creates a new services engine.
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
		logger: logger.With(zap.String("engine", "services")),
	}
}

// Request describes a service payment. Details carry category-specific
// fields (operator, phone, account number, ...) used for the ledger
// description.
type Request struct {
	ServiceName string            `json:"service_name"`
	Amount      decimal.Decimal   `json:"amount"`
	Details     map[string]string `json:"details,omitempty"`
}

// Result reports a completed service payment.
type Result struct {
	TransactionID int64
	Description   string
	NewBalance    decimal.Decimal
}

// Pay debits the customer's first active account and credits the service
// settlement account, creating it on first use.
func (e *Engine) Pay(ctx context.Context, userID int64, req *Request) (*Result, error) {
	if !req.Amount.IsPositive() {
		return nil, engines.ErrInvalidAmount
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userAcc, err := engines.FirstActiveAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	userAcc, err = engines.LockAccount(ctx, tx, userAcc.ID)
	if err != nil {
		return nil, err
	}
	if userAcc.Balance.LessThan(req.Amount) {
		return nil, engines.ErrInsufficientFunds
	}

	serviceAcc, err := e.settlementAccount(ctx, tx, req.ServiceName)
	if err != nil {
		return nil, err
	}
	serviceAcc, err = engines.LockAccount(ctx, tx, serviceAcc.ID)
	if err != nil {
		return nil, err
	}

	description := Describe(req.ServiceName, req.Details)

	if err := engines.UpdateBalance(ctx, tx, userAcc.ID, userAcc.Balance.Sub(req.Amount)); err != nil {
		return nil, err
	}
	if err := engines.UpdateBalance(ctx, tx, serviceAcc.ID, serviceAcc.Balance.Add(req.Amount)); err != nil {
		return nil, err
	}

	txID, err := engines.RecordTransaction(ctx, tx, &userAcc.ID, &serviceAcc.ID, req.Amount, description)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	e.logger.Info("Service payment completed",
		zap.Int64("transaction_id", txID),
		zap.String("service", req.ServiceName),
		zap.String("amount", req.Amount.String()))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		FromAccountID: &userAcc.ID,
		ToAccountID:   &serviceAcc.ID,
		Amount:        req.Amount,
		Category:      description,
		Kind:          events.KindServicePayment,
		OccurredAt:    time.Now(),
	})

	return &Result{
		TransactionID: txID,
		Description:   description,
		NewBalance:    userAcc.Balance.Sub(req.Amount),
	}, nil
}

// settlementAccount returns the settlement account for a service category,
// creating the internal service user and account on first use. Unknown
// categories settle into the catch-all account.
func (e *Engine) settlementAccount(ctx context.Context, tx pgx.Tx, serviceName string) (*models.Account, error) {
	info, ok := directory[serviceName]
	if !ok {
		info = directory["other"]
	}

	var serviceUserID int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE phone = $1`, info.Phone).Scan(&serviceUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		insert := `
			INSERT INTO users (phone, password_hash, full_name, role)
			VALUES ($1, 'service', $2, 'user')
			RETURNING id
		`
		if err := tx.QueryRow(ctx, insert, info.Phone, info.Name).Scan(&serviceUserID); err != nil {
			return nil, fmt.Errorf("failed to create service user: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up service user: %w", err)
	}

	acc, err := engines.FirstActiveAccount(ctx, tx, serviceUserID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, engines.ErrNoActiveAccount) {
		return nil, err
	}

	insert := `
		INSERT INTO accounts (user_id, card_number, balance, currency, is_blocked)
		VALUES ($1, $2, 0.00, 'KZT', FALSE)
		RETURNING id, user_id, card_number, balance, currency, is_blocked
	`
	acc = &models.Account{}
	err = tx.QueryRow(ctx, insert, serviceUserID, info.Card).Scan(
		&acc.ID, &acc.UserID, &acc.CardNumber, &acc.Balance, &acc.Currency, &acc.IsBlocked)
	if err != nil {
		return nil, fmt.Errorf("failed to create service account: %w", err)
	}

	return acc, nil
}

// Describe builds the ledger description for a service payment.
func Describe(serviceName string, details map[string]string) string {
	dt := func(key string) string { return details[key] }

	switch serviceName {
	case "mobile":
		return strings.TrimSpace(fmt.Sprintf("Mobile: %s %s", strings.ToUpper(dt("operator")), dt("phone")))
	case "utilities":
		return strings.TrimSpace(fmt.Sprintf("Utilities: %s (%s)", strings.ToUpper(dt("service")), dt("account")))
	case "transport":
		return strings.TrimSpace(fmt.Sprintf("Transport: %s (%s)", dt("city"), dt("card")))
	case "fines":
		return strings.TrimSpace(fmt.Sprintf("Fine: %s %s", dt("type"), dt("value")))
	case "eco_tree":
		return "Eco contribution"
	case "ortak":
		return "Split repayment"
	default:
		return fmt.Sprintf("Payment: %s", serviceName)
	}
}

// Known reports whether a service category has a dedicated settlement account.
func Known(serviceName string) bool {
	_, ok := directory[serviceName]
	return ok
}

// Check returns the health status of the services engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	err := e.db.Ping(ctx)

	status := healthcheck.StatusHealthy
	message := "Services engine is operational"
	if err != nil {
		status = healthcheck.StatusUnhealthy
		message = fmt.Sprintf("Database error: %v", err)
	}

	return &healthcheck.Result{
		ComponentName: "services_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       map[string]interface{}{"categories": len(directory)},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "services_engine"
}
