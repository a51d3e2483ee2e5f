// Package server wires the banking engines into the HTTP API: routing,
// middleware, request/response shapes and error translation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/config"
	"github.com/bellybank/bellybank/internal/engines/accounts"
	"github.com/bellybank/bellybank/internal/engines/assistant"
	"github.com/bellybank/bellybank/internal/engines/deposits"
	"github.com/bellybank/bellybank/internal/engines/insurance"
	"github.com/bellybank/bellybank/internal/engines/loans"
	"github.com/bellybank/bellybank/internal/engines/security"
	"github.com/bellybank/bellybank/internal/engines/services"
	"github.com/bellybank/bellybank/internal/engines/transfers"
	"github.com/bellybank/bellybank/pkg/healthcheck"
)

// Engines bundles the domain engines the HTTP layer dispatches to.
type Engines struct {
	Accounts  *accounts.Engine
	Tokens    *security.TokenEngine
	Transfers *transfers.Engine
	Services  *services.Engine
	Loans     *loans.Engine
	Deposits  *deposits.Engine
	Insurance *insurance.Engine
	Assistant *assistant.Engine
}

// Server is the HTTP API server.
type Server struct {
	cfg     *config.Settings
	engines *Engines
	logger  *zap.Logger
	stopCh  chan struct{}
}

// NewServer creates a server over the given engines.
func NewServer(cfg *config.Settings, engines *Engines, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engines == nil {
		return nil, fmt.Errorf("engines are required")
	}

	return &Server{
		cfg:     cfg,
		engines: engines,
		logger:  logger.With(zap.String("component", "http_server")),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start runs the HTTP server until the context is cancelled or Stop is
// called, then shuts it down gracefully.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRouter()

	httpServer := &http.Server{
		Addr:         s.cfg.ListenAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)

	serverErrors := make(chan error, 1)

	go func() {
		defer wg.Done()
		s.logger.Info("HTTP server starting", zap.String("address", httpServer.Addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	case <-s.stopCh:
		s.logger.Info("Server stop requested")
	}

	s.logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during HTTP server shutdown", zap.Error(err))
	}

	wg.Wait()

	s.logger.Info("Server shutdown complete")
	return nil
}

// Stop initiates a graceful shutdown.
func (s *Server) Stop() {
	close(s.stopCh)
}

// setupRouter builds the routing table with all middleware and endpoints.
func (s *Server) setupRouter() *gin.Engine {
	if s.cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware order matters: recovery first so panics in the rest of the
	// chain still produce a response.
	router.Use(ErrorHandlerMiddleware(s.logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(s.logger))
	router.Use(CORSMiddleware(s.cfg.CORSAllowedOrigins))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	auth := router.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", AuthMiddleware(s.engines.Tokens), s.handleLogout)
		auth.GET("/me", AuthMiddleware(s.engines.Tokens), s.handleMe)
	}

	api := router.Group("/", AuthMiddleware(s.engines.Tokens))
	{
		api.GET("/accounts", s.handleListAccounts)
		api.GET("/transactions", s.handleListTransactions)

		transfersGroup := api.Group("/transfers")
		{
			transfersGroup.POST("/p2p", s.handleTransfer)
			transfersGroup.GET("/favorites", s.handleListFavorites)
			transfersGroup.POST("/favorites", s.handleAddFavorite)
			transfersGroup.DELETE("/favorites/:id", s.handleDeleteFavorite)
		}

		api.POST("/services/pay", s.handleServicePayment)

		loansGroup := api.Group("/loans")
		{
			loansGroup.POST("/apply", s.handleLoanApply)
			loansGroup.GET("/my", s.handleMyLoans)
			loansGroup.GET("/calendar", s.handleLoanCalendar)
			loansGroup.POST("/:id/pay", s.handleLoanPay)
		}

		depositsGroup := api.Group("/deposits")
		{
			depositsGroup.POST("/create", s.handleDepositCreate)
			depositsGroup.GET("/my", s.handleMyDeposits)
			depositsGroup.POST("/:id/close", s.handleDepositClose)
		}

		insuranceGroup := api.Group("/insurance")
		{
			insuranceGroup.POST("/apply", s.handleInsuranceApply)
			insuranceGroup.GET("/my", s.handleMyPolicies)
			insuranceGroup.POST("/:id/cancel", s.handleInsuranceCancel)
		}

		assistantGroup := api.Group("/assistant")
		{
			assistantGroup.POST("/chat", s.handleAssistantChat)
			assistantGroup.POST("/voice", s.handleAssistantVoice)
		}
	}

	s.logger.Info("HTTP router configured",
		zap.Strings("cors_origins", s.cfg.CORSAllowedOrigins),
		zap.Bool("assistant_remote", s.engines.Assistant.Remote()))

	return router
}

// handleRoot reports the service identity, useful as a liveness probe.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "bellybank-api",
		"status":  "ok",
	})
}

// handleHealth aggregates engine health checks. Degraded or unhealthy
// components turn the endpoint into a 503 so load balancers rotate the
// instance out.
func (s *Server) handleHealth(c *gin.Context) {
	result := healthcheck.Aggregate(c.Request.Context(),
		s.engines.Accounts,
		s.engines.Transfers,
		s.engines.Services,
		s.engines.Loans,
		s.engines.Deposits,
		s.engines.Insurance,
		s.engines.Assistant,
	)

	status := http.StatusOK
	if result.OverallStatus == healthcheck.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}
