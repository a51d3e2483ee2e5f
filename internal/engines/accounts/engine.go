// Package accounts manages customers, their card accounts and the
// transaction history views.
package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bellybank/bellybank/internal/engines"
	"github.com/bellybank/bellybank/internal/models"
	"github.com/bellybank/bellybank/pkg/healthcheck"
)

// Engine manages users and accounts.
type Engine struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewEngine creates a new accounts engine.
func NewEngine(db *pgxpool.Pool, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		logger: logger.With(zap.String("engine", "accounts")),
	}
}

// RegisterUser creates a new customer with a hashed password and opens a
// default KZT card account for them.
func (e *Engine) RegisterUser(ctx context.Context, phone, password, fullName string) (*models.User, *models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	phone = engines.NormalizePhone(phone)

	user := &models.User{
		Phone:        phone,
		PasswordHash: string(hashedPassword),
		FullName:     fullName,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}

	query := `
		INSERT INTO users (phone, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = e.db.QueryRow(ctx, query,
		user.Phone, user.PasswordHash, user.FullName, user.Role, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, nil, engines.ErrPhoneTaken
		}
		e.logger.Error("Failed to create user", zap.Error(err), zap.String("phone", phone))
		return nil, nil, fmt.Errorf("failed to insert user: %w", err)
	}

	account, err := e.CreateAccount(ctx, user.ID, models.CurrencyKZT)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("Registered user",
		zap.Int64("user_id", user.ID),
		zap.Int64("account_id", account.ID))

	return user, account, nil
}

// CreateAccount opens a new card account with a generated card number.
func (e *Engine) CreateAccount(ctx context.Context, userID int64, currency models.Currency) (*models.Account, error) {
	cardNumber, err := generateCardNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}

	account := &models.Account{
		UserID:     userID,
		CardNumber: cardNumber,
		Currency:   currency,
	}

	query := `
		INSERT INTO accounts (user_id, card_number, balance, currency, is_blocked)
		VALUES ($1, $2, 0.00, $3, FALSE)
		RETURNING id, balance
	`
	if err := e.db.QueryRow(ctx, query, userID, cardNumber, currency).Scan(&account.ID, &account.Balance); err != nil {
		e.logger.Error("Failed to create account", zap.Error(err), zap.Int64("user_id", userID))
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return account, nil
}

// Authenticate validates phone/password and returns the user.
func (e *Engine) Authenticate(ctx context.Context, phone, password string) (*models.User, error) {
	user, err := e.GetUserByPhone(ctx, engines.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, engines.ErrNotFound) {
			return nil, engines.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		e.logger.Warn("Authentication failed", zap.String("phone", phone))
		return nil, engines.ErrInvalidCredentials
	}

	e.logger.Info("User authenticated", zap.Int64("user_id", user.ID))
	return user, nil
}

const userColumns = `id, phone, password_hash, COALESCE(full_name, ''), COALESCE(avatar_url, ''), role, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Phone, &user.PasswordHash,
		&user.FullName, &user.AvatarURL, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engines.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetUserByPhone retrieves a user by canonical phone number.
func (e *Engine) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(e.db.QueryRow(ctx, query, phone))
}

// GetUserByID retrieves a user by id.
func (e *Engine) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(e.db.QueryRow(ctx, query, userID))
}

// ListAccounts returns all accounts of a user.
func (e *Engine) ListAccounts(ctx context.Context, userID int64) ([]*models.Account, error) {
	return engines.ListAccounts(ctx, e.db, userID)
}

// ListTransactions returns the most recent transactions touching any of the
// user's accounts, newest first.
func (e *Engine) ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT t.id, t.from_account_id, t.to_account_id, t.amount, t.category, t.created_at
		FROM transactions t
		WHERE t.from_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
		   OR t.to_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2
	`

	rows, err := e.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*models.Transaction, 0)
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(&tx.ID, &tx.FromAccountID, &tx.ToAccountID, &tx.Amount, &tx.Category, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// generateCardNumber produces a random 16-digit card number.
func generateCardNumber() (string, error) {
	digits := make([]byte, 16)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	// Avoid a leading zero so the number renders as 16 digits everywhere.
	if digits[0] == '0' {
		digits[0] = '4'
	}
	return string(digits), nil
}

// Check returns the health status of the accounts engine.
func (e *Engine) Check(ctx context.Context) *healthcheck.Result {
	var userCount int
	err := e.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount)

	status := healthcheck.StatusHealthy
	message := "Accounts engine is operational"
	if err != nil {
		status = healthcheck.StatusUnhealthy
		message = fmt.Sprintf("Database error: %v", err)
		e.logger.Error("Health check failed", zap.Error(err))
	}

	return &healthcheck.Result{
		ComponentName: "accounts_engine",
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details: map[string]interface{}{
			"users":         userCount,
			"database_pool": e.db.Stat().TotalConns(),
		},
	}
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return "accounts_engine"
}
