// Package dto provides data transfer objects for the messaging HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/quietwire/dmcore/internal/validation"
)

// FindOrCreateConversationRequest represents the API request for resolving
// the conversation with another user.
type FindOrCreateConversationRequest struct {
	PeerID string `json:"peer_id"`
}

// Validate checks if the find-or-create request is valid.
func (r *FindOrCreateConversationRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.PeerID,
			validation.Required.Error("peer_id is required"),
			appValidation.NotBlank,
		),
	)
	return appValidation.WrapValidationError(err)
}

// AppendMessageRequest represents the API request for appending a message.
// Exactly one of plaintext or encrypted_payload must be set; the business
// layer enforces the exclusivity.
type AppendMessageRequest struct {
	Plaintext        string `json:"plaintext"`
	EncryptedPayload string `json:"encrypted_payload"` // Base64-encoded ciphertext
}

// Validate checks if the append request is valid.
func (r *AppendMessageRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.EncryptedPayload,
			appValidation.Base64,
		),
	)
	return appValidation.WrapValidationError(err)
}
