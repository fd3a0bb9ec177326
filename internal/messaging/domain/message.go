package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one direct message in a conversation. Exactly one of Plaintext
// and EncryptedPayload is set: legacy conversations carry plaintext, upgraded
// ones carry a hybrid-encryption envelope serialized by the sender.
type Message struct {
	ID               uuid.UUID // Unique identifier (UUIDv7)
	ConversationID   uuid.UUID
	SenderID         uuid.UUID
	Plaintext        *string
	EncryptedPayload []byte
	CreatedAt        time.Time
}

// Encrypted reports whether the message carries an encrypted payload.
func (m *Message) Encrypted() bool {
	return len(m.EncryptedPayload) > 0
}

// ReadCursor marks the newest message a user has read in a conversation.
// Messages after the cursor in the (created_at, id) order are unread.
type ReadCursor struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	LastMessageID  uuid.UUID
	UpdatedAt      time.Time
}
