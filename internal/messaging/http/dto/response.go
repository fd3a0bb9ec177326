package dto

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/messaging/domain"
)

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapConversationToResponse converts a domain conversation to an API response.
func MapConversationToResponse(conversation *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        conversation.ID.String(),
		UserA:     conversation.UserA.String(),
		UserB:     conversation.UserB.String(),
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
	}
}

// ListConversationsResponse represents the user's conversation list.
type ListConversationsResponse struct {
	Data []ConversationResponse `json:"data"`
}

// MapConversationsToListResponse converts domain conversations to a list API response.
func MapConversationsToListResponse(conversations []*domain.Conversation) ListConversationsResponse {
	responses := make([]ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		responses = append(responses, MapConversationToResponse(conversation))
	}
	return ListConversationsResponse{
		Data: responses,
	}
}

// MessageResponse represents a message in API responses. Exactly one of
// plaintext or encrypted_payload is present.
type MessageResponse struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	SenderID         string    `json:"sender_id"`
	Plaintext        *string   `json:"plaintext,omitempty"`
	EncryptedPayload string    `json:"encrypted_payload,omitempty"` // Base64-encoded ciphertext
	CreatedAt        time.Time `json:"created_at"`
}

// MapMessageToResponse converts a domain message to an API response.
func MapMessageToResponse(message *domain.Message) MessageResponse {
	response := MessageResponse{
		ID:             message.ID.String(),
		ConversationID: message.ConversationID.String(),
		SenderID:       message.SenderID.String(),
		Plaintext:      message.Plaintext,
		CreatedAt:      message.CreatedAt,
	}
	if message.Encrypted() {
		response.EncryptedPayload = base64.StdEncoding.EncodeToString(message.EncryptedPayload)
	}
	return response
}

// ListMessagesResponse represents an ordered page of conversation messages.
type ListMessagesResponse struct {
	Data []MessageResponse `json:"data"`
}

// MapMessagesToListResponse converts domain messages to a list API response.
func MapMessagesToListResponse(messages []*domain.Message) ListMessagesResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, MapMessageToResponse(message))
	}
	return ListMessagesResponse{
		Data: responses,
	}
}

// MarkReadResponse reports how many messages a mark-read call consumed.
type MarkReadResponse struct {
	ReadCount int `json:"read_count"`
}

// UnreadCountsResponse maps conversation ids to unread message counts.
type UnreadCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

// MapUnreadCounts converts the use case count map to its API representation.
func MapUnreadCounts(counts map[uuid.UUID]int) UnreadCountsResponse {
	mapped := make(map[string]int, len(counts))
	for id, count := range counts {
		mapped[id.String()] = count
	}
	return UnreadCountsResponse{Counts: mapped}
}
