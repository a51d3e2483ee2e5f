// Package transfers implements peer-to-peer money movement and the saved
// transfer destinations (favorites).
package transfers

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

// Engine executes transfers and manages favorites.
type Engine struct {
	db     *pgxpool.Pool
	events events.Publisher
	logger *zap.Logger
}

// NewEngine creates a new transfers engine.
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
		logger: logger.With(zap.String("engine", "transfers")),
	}
}

// Request describes a requested transfer. Exactly one of ToCard/ToPhone
// identifies the recipient; FromAccountID is optional (the engine picks a
// funding account when it is absent, e.g. for assistant-initiated transfers).
type Request struct {
	Amount        decimal.Decimal `json:"amount"`
	ToCard        string          `json:"to_card,omitempty"`
	ToPhone       string          `json:"to_phone,omitempty"`
	FromAccountID *int64          `json:"from_account_id,omitempty"`
}

// Result reports a completed transfer.
type Result struct {
	TransactionID int64
	Category      string
	// External is true when the destination card is not held at this bank
	// and only the debit leg was recorded.
	External bool
}

// Transfer moves money between accounts. The whole operation runs in one
// database transaction with row locks on both balances.
func (e *Engine) Transfer(ctx context.Context, userID int64, req *Request) (*Result, error) {
	if !req.Amount.IsPositive() {
		return nil, engines.ErrInvalidAmount
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sender, err := e.selectSenderAccount(ctx, tx, userID, req)
	if err != nil {
		return nil, err
	}

	recipient, cleanCard, err := e.resolveRecipient(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if recipient != nil && recipient.ID == sender.ID {
		return nil, engines.ErrSameAccount
	}

	// Both rows are locked in ascending id order so two opposing transfers
	// cannot deadlock on each other's locks.
	for _, id := range lockOrder(sender.ID, recipient) {
		locked, err := engines.LockAccount(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case locked.ID == sender.ID:
			sender = locked
		case recipient != nil && locked.ID == recipient.ID:
			recipient = locked
		}
	}

	if sender.IsBlocked {
		return nil, engines.ErrCardBlocked
	}
	if sender.Balance.LessThan(req.Amount) {
		return nil, engines.ErrInsufficientFunds
	}

	if err := engines.UpdateBalance(ctx, tx, sender.ID, sender.Balance.Sub(req.Amount)); err != nil {
		return nil, err
	}

	var toAccountID *int64
	var category string
	if recipient != nil {
		if err := engines.UpdateBalance(ctx, tx, recipient.ID, recipient.Balance.Add(req.Amount)); err != nil {
			return nil, err
		}
		toAccountID = &recipient.ID
		category = "Transfer to client"
	} else {
		suffix := "EXT"
		if len(cleanCard) >= 4 {
			suffix = cleanCard[len(cleanCard)-4:]
		}
		category = fmt.Sprintf("Transfer to external card (*%s)", suffix)
	}

	txID, err := engines.RecordTransaction(ctx, tx, &sender.ID, toAccountID, req.Amount, category)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	e.logger.Info("Transfer completed",
		zap.Int64("transaction_id", txID),
		zap.Int64("from_account", sender.ID),
		zap.String("amount", req.Amount.String()),
		zap.Bool("external", recipient == nil))

	e.events.PublishTransaction(&events.TransactionEvent{
		TransactionID: txID,
		UserID:        userID,
		FromAccountID: &sender.ID,
		ToAccountID:   toAccountID,
		Amount:        req.Amount,
		Category:      category,
		Kind:          events.KindTransfer,
		OccurredAt:    time.Now(),
	})

	return &Result{
		TransactionID: txID,
		Category:      category,
		External:      recipient == nil,
	}, nil
}

// lockOrder returns the account ids to lock, ascending. External transfers
// (nil recipient) lock only the sender row.
func lockOrder(senderID int64, recipient *models.Account) []int64 {
	if recipient == nil {
		return []int64{senderID}
	}
	if recipient.ID < senderID {
		return []int64{recipient.ID, senderID}
	}
	return []int64{senderID, recipient.ID}
}

// selectSenderAccount picks the funding account: the explicitly requested
// one when it belongs to the user, otherwise the first unblocked account
// that can cover the amount, otherwise the first unblocked account (so the
// insufficient-funds error reports against a concrete card).
func (e *Engine) selectSenderAccount(ctx context.Context, tx pgx.Tx, userID int64, req *Request) (*models.Account, error) {
	if req.FromAccountID != nil {
		acc, err := engines.GetUserAccount(ctx, tx, *req.FromAccountID, userID)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, engines.ErrNotFound) {
			return nil, err
		}
		// Requested account doesn't exist or isn't theirs: fall through to
		// automatic selection.
	}

	accounts, err := engines.ListAccounts(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var candidates []*models.Account
	for _, acc := range accounts {
		if !acc.IsBlocked {
			candidates = append(candidates, acc)
		}
	}
	if len(candidates) == 0 {
		return nil, engines.ErrNoActiveAccount
	}

	for _, acc := range candidates {
		if acc.Balance.GreaterThanOrEqual(req.Amount) {
			return acc, nil
		}
	}
	return candidates[0], nil
}

// resolveRecipient resolves the destination account. A phone must match a
// customer; a card that matches nothing means an external transfer and a nil
// account is returned together with the cleaned card number.
func (e *Engine) resolveRecipient(ctx context.Context, tx pgx.Tx, req *Request) (*models.Account, string, error) {
	cleanCard := strings.ReplaceAll(req.ToCard, " ", "")

	if req.ToPhone != "" {
		phone := engines.NormalizePhone(req.ToPhone)

		var recipientID int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE phone = $1`, phone).Scan(&recipientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, "", engines.ErrRecipientNotFound
			}
			return nil, "", fmt.Errorf("failed to look up recipient: %w", err)
		}

		accounts, err := engines.ListAccounts(ctx, tx, recipientID)
		if err != nil {
			return nil, "", err
		}
		if len(accounts) == 0 {
			return nil, "", engines.ErrNoActiveAccount
		}
		for _, acc := range accounts {
			if !acc.IsBlocked {
				return acc, cleanCard, nil
			}
		}
		// All cards blocked: credit the first one anyway, matching how
		// incoming transfers are accepted for blocked cards.
		return accounts[0], cleanCard, nil
	}

	if cleanCard != "" {
		acc, err := engines.GetAccountByCard(ctx, tx, cleanCard)
		if err == nil {
			return acc, cleanCard, nil
		}
		if errors.Is(err, engines.ErrNotFound) {
			return nil, cleanCard, nil // external card
		}
		return nil, "", err
	}

	return nil, cleanCard, nil
}

// Check returns the health status of the transfers engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	var count int
	err := e.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)

	status := healthcheck.StatusHealthy
	message := "Transfers engine is operational"
	if err != nil {
		status = healthcheck.StatusUnhealthy
		message = fmt.Sprintf("Database error: %v", err)
	}

	return &healthcheck.Result{
		ComponentName: "transfers_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       map[string]interface{}{"transactions": count},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "transfers_engine"
}
