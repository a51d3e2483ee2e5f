package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bellybank/bellybank/internal/engines/loans"
	"github.com/bellybank/bellybank/internal/models"
)

type loanApplication struct {
	LoanType        models.LoanType `json:"loan_type" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	TermMonths      int             `json:"term_months" binding:"required,min=1"`
	MonthlyIncome   decimal.Decimal `json:"monthly_income" binding:"required"`
	CollateralValue decimal.Decimal `json:"collateral_value"`
}

// handleLoanApply scores a loan application and disburses on approval.
func (s *Server) handleLoanApply(c *gin.Context) {
	var req loanApplication
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	offer, err := s.engines.Loans.Apply(c.Request.Context(), currentUserID(c), &loans.Application{
		LoanType:        req.LoanType,
		Amount:          req.Amount,
		TermMonths:      req.TermMonths,
		MonthlyIncome:   req.MonthlyIncome,
		CollateralValue: req.CollateralValue,
	})
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"loan_id":         offer.LoanID,
		"monthly_payment": offer.MonthlyPayment,
		"rate":            offer.Rate,
		"first_due_date":  offer.FirstDueDate,
	})
}

// handleMyLoans lists the caller's open loans with outstanding balances.
func (s *Server) handleMyLoans(c *gin.Context) {
	active, err := s.engines.Loans.ListActive(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// handleLoanCalendar returns upcoming payment totals keyed by due date.
func (s *Server) handleLoanCalendar(c *gin.Context) {
	calendar, err := s.engines.Loans.PaymentCalendar(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, calendar)
}

// handleLoanPay pays the earliest unpaid installment of a loan.
func (s *Server) handleLoanPay(c *gin.Context) {
	loanID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid loan id"})
		return
	}

	payment, err := s.engines.Loans.PayInstallment(c.Request.Context(), currentUserID(c), loanID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type depositRequest struct {
	DepositType models.DepositType `json:"deposit_type" binding:"required"`
	Amount      decimal.Decimal    `json:"amount" binding:"required"`
	TermMonths  int                `json:"term_months" binding:"required,min=1"`
}

// handleDepositCreate opens a fixed-term deposit.
func (s *Server) handleDepositCreate(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	placement, err := s.engines.Deposits.Create(c.Request.Context(), currentUserID(c),
		req.DepositType, req.Amount, req.TermMonths)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"deposit":          placement.Deposit,
		"estimated_income": placement.EstimatedIncome,
	})
}

// handleMyDeposits lists the caller's open deposits with accrued interest.
func (s *Server) handleMyDeposits(c *gin.Context) {
	active, err := s.engines.Deposits.ListActive(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// handleDepositClose closes a deposit early, returning the principal.
func (s *Server) handleDepositClose(c *gin.Context) {
	depositID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid deposit id"})
		return
	}

	returned, err := s.engines.Deposits.CloseEarly(c.Request.Context(), currentUserID(c), depositID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "closed",
		"returned": returned,
	})
}

type insuranceRequest struct {
	InsuranceType  models.InsuranceType `json:"insurance_type" binding:"required"`
	CoverageAmount decimal.Decimal      `json:"coverage_amount" binding:"required"`
	TermMonths     int                  `json:"term_months" binding:"required,min=1"`
}

// handleInsuranceApply issues an insurance policy, charging the full premium.
func (s *Server) handleInsuranceApply(c *gin.Context) {
	var req insuranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	policy, err := s.engines.Insurance.Apply(c.Request.Context(), currentUserID(c),
		req.InsuranceType, req.CoverageAmount, req.TermMonths)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, policy)
}

// handleMyPolicies lists the caller's active policies.
func (s *Server) handleMyPolicies(c *gin.Context) {
	policies, err := s.engines.Insurance.ListActive(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, policies)
}

// handleInsuranceCancel deactivates a policy.
func (s *Server) handleInsuranceCancel(c *gin.Context) {
	policyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid policy id"})
		return
	}

	if err := s.engines.Insurance.Cancel(c.Request.Context(), currentUserID(c), policyID); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
