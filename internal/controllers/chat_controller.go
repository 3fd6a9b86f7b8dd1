package controllers

import (
	"errors"
	"net/http"

	"github.com/flightchat/backend/internal/chat"
	"github.com/flightchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	service *chat.Service
}

func NewChatController(service *chat.Service) *ChatController {
	return &ChatController{service: service}
}

type chatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
	FileID         string `json:"fileId"`
}

// Ask handles one question transaction against a flight log.
func (cc *ChatController) Ask(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := cc.service.Answer(c.Request.Context(), req.Question, req.ConversationID, req.FileID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingContext):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No flight log bound to this conversation. Upload a log or supply fileId."})
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Flight log not found"})
		case errors.Is(err, models.ErrReasoningUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Reasoning service unavailable, please retry later"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process question"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
