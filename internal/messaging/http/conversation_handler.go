// Package http provides HTTP handlers for conversation and message operations.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/httputil"
	"github.com/quietwire/dmcore/internal/messaging/http/dto"
	messagingUseCase "github.com/quietwire/dmcore/internal/messaging/usecase"
)

// ConversationHandler handles HTTP requests for conversations and messages.
type ConversationHandler struct {
	conversationUseCase messagingUseCase.ConversationUseCase
	messageUseCase      messagingUseCase.MessageUseCase
	logger              *slog.Logger
}

// NewConversationHandler creates a new conversation handler with required dependencies.
func NewConversationHandler(
	conversationUseCase messagingUseCase.ConversationUseCase,
	messageUseCase messagingUseCase.MessageUseCase,
	logger *slog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		messageUseCase:      messageUseCase,
		logger:              logger,
	}
}

// RegisterRoutes mounts the messaging endpoints.
func (h *ConversationHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/conversations", h.FindOrCreateHandler)
	r.GET("/conversations", h.ListConversationsHandler)
	r.POST("/conversations/:id/repair", h.RepairHandler)
	r.POST("/conversations/:id/messages", h.AppendMessageHandler)
	r.GET("/conversations/:id/messages", h.ListMessagesHandler)
	r.POST("/conversations/:id/read", h.MarkReadHandler)
	r.GET("/messages/unread-counts", h.UnreadCountsHandler)
}

// FindOrCreateHandler resolves the conversation between the caller and a peer.
// POST /v1/conversations
// Returns 200 OK with the conversation; both directions yield the same row.
func (h *ConversationHandler) FindOrCreateHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.FindOrCreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	peerID, err := uuid.Parse(req.PeerID)
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid peer_id format: must be a valid UUID"),
			h.logger)
		return
	}

	conversation, err := h.conversationUseCase.FindOrCreate(c.Request.Context(), userID, peerID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConversationToResponse(conversation))
}

// ListConversationsHandler returns the caller's conversations.
// GET /v1/conversations
// Ordered by most recent activity.
func (h *ConversationHandler) ListConversationsHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	conversations, err := h.conversationUseCase.List(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConversationsToListResponse(conversations))
}

// RepairHandler restores the caller's missing participant row.
// POST /v1/conversations/:id/repair
// Idempotent; only works for members of the conversation's stored pair.
func (h *ConversationHandler) RepairHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid conversation ID format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.conversationUseCase.Repair(c.Request.Context(), conversationID, userID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "repaired"})
}

// AppendMessageHandler appends a message to a conversation.
// POST /v1/conversations/:id/messages
// Returns 201 Created with the stored message.
func (h *ConversationHandler) AppendMessageHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid conversation ID format: must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	content := messagingUseCase.MessageContent{}
	if req.Plaintext != "" {
		content.Plaintext = &req.Plaintext
	}
	if req.EncryptedPayload != "" {
		payload, err := base64.StdEncoding.DecodeString(req.EncryptedPayload)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid encrypted_payload: must be valid base64"),
				h.logger)
			return
		}
		content.EncryptedPayload = payload
	}

	message, err := h.messageUseCase.Append(c.Request.Context(), conversationID, userID, content)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapMessageToResponse(message))
}

// ListMessagesHandler lists conversation messages in stored order.
// GET /v1/conversations/:id/messages?after=<message_id>&limit=<n>
// A missing "after" starts from the beginning; limit 0 returns everything.
func (h *ConversationHandler) ListMessagesHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid conversation ID format: must be a valid UUID"),
			h.logger)
		return
	}

	after, err := httputil.ParseAfterCursor(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	limit, err := httputil.ParseOptionalLimit(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	messages, err := h.messageUseCase.ListSince(c.Request.Context(), conversationID, userID, after, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessagesToListResponse(messages))
}

// MarkReadHandler advances the caller's read cursor to the newest message.
// POST /v1/conversations/:id/read
// Returns how many messages were newly read; repeating the call returns 0.
func (h *ConversationHandler) MarkReadHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid conversation ID format: must be a valid UUID"),
			h.logger)
		return
	}

	count, err := h.messageUseCase.MarkRead(c.Request.Context(), conversationID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{ReadCount: count})
}

// UnreadCountsHandler reports unread counts across the caller's conversations.
// GET /v1/messages/unread-counts
func (h *ConversationHandler) UnreadCountsHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	counts, err := h.messageUseCase.UnreadCounts(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUnreadCounts(counts))
}
