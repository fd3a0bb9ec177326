// Package dto provides request and response types for the search endpoints.
package dto

import (
	"time"

	"github.com/quietwire/dmcore/internal/search/service"
)

// SearchHitResponse represents one search result in API responses.
type SearchHitResponse struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Snippet        string    `json:"snippet"`
	CreatedAt      time.Time `json:"created_at"`
}

// SearchResponse represents the hit list for a query, newest first.
type SearchResponse struct {
	Data []SearchHitResponse `json:"data"`
}

// MapHitsToResponse converts search hits to an API response.
func MapHitsToResponse(hits []service.Hit) SearchResponse {
	responses := make([]SearchHitResponse, 0, len(hits))
	for _, hit := range hits {
		responses = append(responses, SearchHitResponse{
			MessageID:      hit.MessageID.String(),
			ConversationID: hit.ConversationID.String(),
			Snippet:        hit.Snippet,
			CreatedAt:      hit.CreatedAt,
		})
	}
	return SearchResponse{Data: responses}
}

// RebuildResponse acknowledges a completed index rebuild.
type RebuildResponse struct {
	Status string `json:"status"`
}
