// Package engines holds the building blocks shared by the banking engines:
// the query interface satisfied by both the pool and transactions, the error
// taxonomy the HTTP layer maps to status codes, and account lookup helpers.
package engines

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/bellybank/bellybank/internal/models"
)

// Querier is the subset of pgx operations engines need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same query helpers work inside and outside
// a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Domain errors. The HTTP layer translates these to response codes; engines
// wrap them with context where useful.
var (
	ErrNotFound               = errors.New("not found")
	ErrNoActiveAccount        = errors.New("no active account")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrCardBlocked            = errors.New("card is blocked")
	ErrSameAccount            = errors.New("transfer to the same card is not possible")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrAllInstallmentsPaid    = errors.New("all installments already paid")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPhoneTaken             = errors.New("phone number already registered")
	ErrInsufficientCollateral = errors.New("collateral value must cover the loan amount")
)

// InsufficientIncomeError rejects a loan application whose annuity payment
// exceeds the allowed share of the applicant's income.
type InsufficientIncomeError struct {
	// MinIncome is the minimum monthly income required for approval.
	MinIncome decimal.Decimal
}

func (e *InsufficientIncomeError) Error() string {
	return fmt.Sprintf("income is insufficient for this loan, minimum required: %s", e.MinIncome.StringFixed(0))
}

const accountColumns = `id, user_id, card_number, balance, currency, is_blocked`

func scanAccount(row pgx.Row) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(&acc.ID, &acc.UserID, &acc.CardNumber, &acc.Balance, &acc.Currency, &acc.IsBlocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return acc, nil
}

// GetAccount retrieves an account by id.
func GetAccount(ctx context.Context, q Querier, accountID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(q.QueryRow(ctx, query, accountID))
}

// GetUserAccount retrieves an account by id, scoped to its owner.
func GetUserAccount(ctx context.Context, q Querier, accountID, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	return scanAccount(q.QueryRow(ctx, query, accountID, userID))
}

// GetAccountByCard retrieves an account by card number.
func GetAccountByCard(ctx context.Context, q Querier, cardNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE card_number = $1`
	return scanAccount(q.QueryRow(ctx, query, cardNumber))
}

// FirstActiveAccount returns the first unblocked account of a user, or
// ErrNoActiveAccount if the user has none.
func FirstActiveAccount(ctx context.Context, q Querier, userID int64) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND is_blocked = FALSE
		ORDER BY id
		LIMIT 1
	`
	acc, err := scanAccount(q.QueryRow(ctx, query, userID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoActiveAccount
	}
	return acc, err
}

// ListAccounts returns all accounts of a user ordered by id.
func ListAccounts(ctx context.Context, q Querier, userID int64) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY id`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		acc := &models.Account{}
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.CardNumber, &acc.Balance, &acc.Currency, &acc.IsBlocked); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// LockAccount re-reads an account inside a transaction with a row lock, so
// concurrent balance updates serialize instead of clobbering each other.
func LockAccount(ctx context.Context, tx pgx.Tx, accountID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, accountID))
}

// UpdateBalance sets the balance of an account.
func UpdateBalance(ctx context.Context, q Querier, accountID int64, balance decimal.Decimal) error {
	_, err := q.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// RecordTransaction inserts a ledger row and returns its id.
func RecordTransaction(ctx context.Context, q Querier, from, to *int64, amount decimal.Decimal, category string) (int64, error) {
	query := `
		INSERT INTO transactions (from_account_id, to_account_id, amount, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := q.QueryRow(ctx, query, from, to, amount, category).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to record transaction: %w", err)
	}
	return id, nil
}
