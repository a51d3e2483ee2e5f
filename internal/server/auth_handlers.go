package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=4"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// handleRegister creates a customer and returns their first access token.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, account, err := s.engines.Accounts.RegisterUser(c.Request.Context(), req.Phone, req.Password, req.FullName)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	token, expiresAt, err := s.engines.Tokens.GenerateToken(user.ID, user.Phone)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    user,
		"account": account,
		"token": tokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresAt:   expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

// handleLogin authenticates by phone and password.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, err := s.engines.Accounts.Authenticate(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	token, expiresAt, err := s.engines.Tokens.GenerateToken(user.ID, user.Phone)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// handleRefresh exchanges a valid token for a fresh one.
func (s *Server) handleRefresh(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	token, expiresAt, err := s.engines.Tokens.RefreshToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// handleLogout revokes the presented token so it cannot be used again
// before its natural expiry.
func (s *Server) handleLogout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}

	if err := s.engines.Tokens.RevokeToken(tokenString); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Logged out"})
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.engines.Accounts.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
