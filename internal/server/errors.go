package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/engines"
)

// respondError translates a domain error into an HTTP response. Unknown
// errors become 500s and are attached to the gin context so the logging
// middleware records them.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var incomeErr *engines.InsufficientIncomeError

	switch {
	case errors.Is(err, engines.ErrInvalidAmount),
		errors.Is(err, engines.ErrInsufficientFunds),
		errors.Is(err, engines.ErrNoActiveAccount),
		errors.Is(err, engines.ErrSameAccount),
		errors.Is(err, engines.ErrAllInstallmentsPaid),
		errors.Is(err, engines.ErrInsufficientCollateral),
		errors.Is(err, engines.ErrPhoneTaken):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})

	case errors.As(err, &incomeErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"detail":     incomeErr.Error(),
			"min_income": incomeErr.MinIncome,
		})

	case errors.Is(err, engines.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})

	case errors.Is(err, engines.ErrCardBlocked):
		c.JSON(http.StatusForbidden, gin.H{"detail": err.Error()})

	case errors.Is(err, engines.ErrNotFound),
		errors.Is(err, engines.ErrRecipientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})

	default:
		logger.Error("Request handling failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}
