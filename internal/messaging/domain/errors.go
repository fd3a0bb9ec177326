package domain

import (
	"github.com/quietwire/dmcore/internal/errors"
)

var (
	// ErrSelfConversation indicates an attempt to open a conversation with
	// oneself.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrSelfConversation = errors.Wrap(errors.ErrInvalidInput, "cannot start a conversation with yourself")

	// ErrConversationNotFound indicates the conversation does not exist.
	//
	// HTTP Status: 404 Not Found
	ErrConversationNotFound = errors.Wrap(errors.ErrNotFound, "conversation not found")

	// ErrMessageNotFound indicates the referenced message does not exist.
	//
	// HTTP Status: 404 Not Found
	ErrMessageNotFound = errors.Wrap(errors.ErrNotFound, "message not found")

	// ErrNotParticipant indicates the caller is not a member of the
	// conversation. Participation is checked before every message operation.
	//
	// HTTP Status: 403 Forbidden
	ErrNotParticipant = errors.Wrap(errors.ErrForbidden, "not a participant of this conversation")

	// ErrInvalidContent indicates message content carried both or neither of
	// plaintext and encrypted payload.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidContent = errors.Wrap(errors.ErrInvalidInput, "message must carry exactly one of plaintext or encrypted payload")

	// ErrConsistencyRepairFailed indicates a conversation was created with an
	// incomplete participant set and the compensating cleanup also failed.
	// This is never swallowed; the conversation id is logged at Error.
	//
	// HTTP Status: 500 Internal Server Error
	ErrConsistencyRepairFailed = errors.Wrap(errors.ErrInternal, "conversation consistency repair failed")
)
