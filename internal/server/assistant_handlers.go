package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bellybank/bellybank/internal/engines/assistant"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// handleAssistantChat answers a text message, possibly with a transfer action.
func (s *Server) handleAssistantChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	resp, err := s.engines.Assistant.Chat(c.Request.Context(), currentUserID(c), req.Message)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleAssistantVoice transcribes an uploaded audio message and answers it.
// Returns 503 when no transcription backend is configured.
func (s *Server) handleAssistantVoice(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "audio file is required"})
		return
	}
	defer file.Close()

	resp, transcript, err := s.engines.Assistant.Voice(c.Request.Context(), currentUserID(c), header.Filename, file)
	if err != nil {
		if errors.Is(err, assistant.ErrVoiceUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
			return
		}
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcript": transcript,
		"reply":      resp.Reply,
		"action":     resp.Action,
		"data":       resp.Data,
	})
}
