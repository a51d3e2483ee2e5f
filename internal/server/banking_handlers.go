package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bellybank/bellybank/internal/engines/services"
	"github.com/bellybank/bellybank/internal/engines/transfers"
)

// handleListAccounts returns the caller's card accounts.
func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.engines.Accounts.ListAccounts(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// handleListTransactions returns the caller's recent transactions, newest
// first. The optional limit query parameter caps the page size.
func (s *Server) handleListTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	txs, err := s.engines.Accounts.ListTransactions(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

type transferRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	ToCard        string          `json:"to_card"`
	ToPhone       string          `json:"to_phone"`
	FromAccountID *int64          `json:"from_account_id"`
}

// handleTransfer executes a P2P transfer by card number or phone.
func (s *Server) handleTransfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := s.engines.Transfers.Transfer(c.Request.Context(), currentUserID(c), &transfers.Request{
		Amount:        req.Amount,
		ToCard:        req.ToCard,
		ToPhone:       req.ToPhone,
		FromAccountID: req.FromAccountID,
	})
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": result.TransactionID,
		"category":       result.Category,
		"external":       result.External,
	})
}

// handleListFavorites returns the caller's saved transfer destinations.
func (s *Server) handleListFavorites(c *gin.Context) {
	favorites, err := s.engines.Transfers.ListFavorites(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, favorites)
}

type favoriteRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"`
	Type  string `json:"type" binding:"required,oneof=phone card"`
}

// handleAddFavorite saves a transfer destination.
func (s *Server) handleAddFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	fav, err := s.engines.Transfers.AddFavorite(c.Request.Context(), currentUserID(c), req.Name, req.Value, req.Type)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

// handleDeleteFavorite removes a saved destination.
func (s *Server) handleDeleteFavorite(c *gin.Context) {
	favoriteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid favorite id"})
		return
	}

	if err := s.engines.Transfers.DeleteFavorite(c.Request.Context(), currentUserID(c), favoriteID); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type servicePaymentRequest struct {
	ServiceName string            `json:"service_name" binding:"required"`
	Amount      decimal.Decimal   `json:"amount" binding:"required"`
	Details     map[string]string `json:"details"`
}

// handleServicePayment pays a bill or service.
func (s *Server) handleServicePayment(c *gin.Context) {
	var req servicePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := s.engines.Services.Pay(c.Request.Context(), currentUserID(c), &services.Request{
		ServiceName: req.ServiceName,
		Amount:      req.Amount,
		Details:     req.Details,
	})
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": result.TransactionID,
		"description":    result.Description,
		"new_balance":    result.NewBalance,
	})
}
