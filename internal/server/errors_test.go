package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/engines"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid amount", engines.ErrInvalidAmount, http.StatusBadRequest},
		{"insufficient funds", engines.ErrInsufficientFunds, http.StatusBadRequest},
		{"no active account", engines.ErrNoActiveAccount, http.StatusBadRequest},
		{"same account", engines.ErrSameAccount, http.StatusBadRequest},
		{"phone taken", engines.ErrPhoneTaken, http.StatusBadRequest},
		{"collateral", engines.ErrInsufficientCollateral, http.StatusBadRequest},
		{"installments paid", engines.ErrAllInstallmentsPaid, http.StatusBadRequest},
		{"income too low", &engines.InsufficientIncomeError{MinIncome: decimal.NewFromInt(90000)}, http.StatusBadRequest},
		{"wrapped income error", fmt.Errorf("apply: %w", &engines.InsufficientIncomeError{MinIncome: decimal.NewFromInt(1)}), http.StatusBadRequest},
		{"bad credentials", engines.ErrInvalidCredentials, http.StatusUnauthorized},
		{"blocked card", engines.ErrCardBlocked, http.StatusForbidden},
		{"not found", engines.ErrNotFound, http.StatusNotFound},
		{"recipient not found", engines.ErrRecipientNotFound, http.StatusNotFound},
		{"wrapped domain error", fmt.Errorf("transfer: %w", engines.ErrInsufficientFunds), http.StatusBadRequest},
		{"unknown error", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			respondError(c, zap.NewNop(), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), "detail")
		})
	}
}

func TestRespondErrorIncludesMinIncome(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/loans/apply", nil)

	respondError(c, zap.NewNop(), &engines.InsufficientIncomeError{
		MinIncome: decimal.NewFromInt(150000),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "min_income")
	assert.Contains(t, w.Body.String(), "150000")
}
