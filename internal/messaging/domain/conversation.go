// Package domain defines the messaging entities: conversations, participants,
// messages, and read cursors.
package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct conversation between exactly two users. The pair
// is stored normalized (UserA < UserB by byte order) so each pair resolves to
// one row regardless of who initiated.
type Conversation struct {
	ID        uuid.UUID // Unique identifier (UUIDv7)
	UserA     uuid.UUID
	UserB     uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time // bumped on every appended message
}

// Participant is a user's membership in a conversation. A well-formed
// conversation has exactly two participant rows.
type Participant struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	CreatedAt      time.Time
}

// NormalizePair orders two user ids canonically. Both (a, b) and (b, a) map
// to the same normalized pair.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}
