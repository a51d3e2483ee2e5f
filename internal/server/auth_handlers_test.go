package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/engines/security"
)

func TestLogoutRevokesToken(t *testing.T) {
	tokens := security.NewTokenEngine("test-secret", 30*time.Minute, nil)
	srv := &Server{
		engines: &Engines{Tokens: tokens},
		logger:  zap.NewNop(),
	}

	router := gin.New()
	router.POST("/auth/logout", AuthMiddleware(tokens), srv.handleLogout)
	router.GET("/protected", AuthMiddleware(tokens), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, _, err := tokens.GenerateToken(7, "87001234567")
	require.NoError(t, err)

	// The token works before logout.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The same token is rejected afterwards.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithoutBearerToken(t *testing.T) {
	tokens := security.NewTokenEngine("test-secret", 30*time.Minute, nil)
	srv := &Server{
		engines: &Engines{Tokens: tokens},
		logger:  zap.NewNop(),
	}

	router := gin.New()
	router.POST("/auth/logout", srv.handleLogout)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
