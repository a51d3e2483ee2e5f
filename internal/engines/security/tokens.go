// Package security issues and validates the JWT access tokens guarding the API.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenEngine manages JWT access tokens, including revocation.
type TokenEngine struct {
	secret        []byte
	tokenDuration time.Duration
	// revokedTokens maps token ID to expiry time for cleanup.
	revokedTokens map[string]time.Time
	mu            sync.RWMutex
	logger        *zap.Logger
}

// Claims are the JWT claims carried by an access token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Phone  string `json:"phone"`
	jwt.RegisteredClaims
}

// NewTokenEngine creates a token engine signing with the given secret.
func NewTokenEngine(secret string, tokenDuration time.Duration, logger *zap.Logger) *TokenEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenEngine{
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
		revokedTokens: make(map[string]time.Time),
		logger:        logger.With(zap.String("engine", "security")),
	}
}

// GenerateToken creates a new signed access token for a user.
func (e *TokenEngine) GenerateToken(userID int64, phone string) (string, time.Time, error) {
	expiresAt := time.Now().Add(e.tokenDuration)

	tokenIDBytes := make([]byte, 16)
	if _, err := rand.Read(tokenIDBytes); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token ID: %w", err)
	}

	claims := &Claims{
		UserID: userID,
		Phone:  phone,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        hex.EncodeToString(tokenIDBytes),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "bellybank-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(e.secret)
	if err != nil {
		e.logger.Error("Failed to sign token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken parses and validates an access token.
func (e *TokenEngine) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return e.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	e.mu.RLock()
	_, revoked := e.revokedTokens[claims.ID]
	e.mu.RUnlock()
	if revoked {
		e.logger.Warn("Attempted to use revoked token", zap.Int64("user_id", claims.UserID))
		return nil, fmt.Errorf("token has been revoked")
	}

	return claims, nil
}

// RefreshToken issues a new token from an existing valid one.
func (e *TokenEngine) RefreshToken(tokenString string) (string, time.Time, error) {
	claims, err := e.ValidateToken(tokenString)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("cannot refresh invalid token: %w", err)
	}
	return e.GenerateToken(claims.UserID, claims.Phone)
}

// RevokeToken invalidates a token before its natural expiry.
func (e *TokenEngine) RevokeToken(tokenString string) error {
	claims, err := e.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.revokedTokens[claims.ID] = claims.ExpiresAt.Time
	e.mu.Unlock()

	e.logger.Info("Token revoked",
		zap.String("token_id", claims.ID),
		zap.Int64("user_id", claims.UserID))

	return nil
}

// CleanupExpiredRevocations drops revocation records for tokens that have
// expired anyway. Should be called periodically to bound memory.
func (e *TokenEngine) CleanupExpiredRevocations() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	count := 0
	for tokenID, expiresAt := range e.revokedTokens {
		if now.After(expiresAt) {
			delete(e.revokedTokens, tokenID)
			count++
		}
	}

	if count > 0 {
		e.logger.Debug("Cleaned up expired token revocations", zap.Int("count", count))
	}
	return count
}
