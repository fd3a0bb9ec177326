package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/messaging/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// MessageRepository interface defines message repository operations
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListSince(ctx context.Context, conversationID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Message, error)
	LatestMessageID(ctx context.Context, conversationID uuid.UUID) (uuid.UUID, error)
	CountUnreadAfter(ctx context.Context, conversationID, userID uuid.UUID, after *uuid.UUID) (int, error)
	UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
}

// ReadCursorRepository interface defines read cursor repository operations
type ReadCursorRepository interface {
	Get(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ReadCursor, error)
	Upsert(ctx context.Context, cursor *domain.ReadCursor) error
}

// MessageContent carries the body of a new message. Exactly one of the two
// fields must be set.
type MessageContent struct {
	Plaintext        *string
	EncryptedPayload []byte
}

// MessageUseCase defines the interface for message operations
type MessageUseCase interface {
	Append(ctx context.Context, conversationID, senderID uuid.UUID, content MessageContent) (*domain.Message, error)
	ListSince(ctx context.Context, conversationID, userID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Message, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
	UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
}

// MessageStore handles message business logic
type MessageStore struct {
	txManager     database.TxManager
	messageRepo   MessageRepository
	cursorRepo    ReadCursorRepository
	conversations ConversationUseCase
	convRepo      ConversationRepository
	logger        *slog.Logger
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(
	txManager database.TxManager,
	messageRepo MessageRepository,
	cursorRepo ReadCursorRepository,
	conversations ConversationUseCase,
	convRepo ConversationRepository,
	logger *slog.Logger,
) *MessageStore {
	return &MessageStore{
		txManager:     txManager,
		messageRepo:   messageRepo,
		cursorRepo:    cursorRepo,
		conversations: conversations,
		convRepo:      convRepo,
		logger:        logger,
	}
}

// validateContent enforces the plaintext/encrypted exclusivity rule.
func validateContent(content MessageContent) error {
	hasPlaintext := content.Plaintext != nil && strings.TrimSpace(*content.Plaintext) != ""
	hasEncrypted := len(content.EncryptedPayload) > 0

	if hasPlaintext == hasEncrypted {
		return domain.ErrInvalidContent
	}
	return nil
}

// Append stores a new message from a participant and bumps the conversation's
// recency in the same transaction.
func (uc *MessageStore) Append(
	ctx context.Context,
	conversationID, senderID uuid.UUID,
	content MessageContent,
) (*domain.Message, error) {
	if err := uc.conversations.Authorize(ctx, conversationID, senderID); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	message := &domain.Message{
		ID:               uuid.Must(uuid.NewV7()),
		ConversationID:   conversationID,
		SenderID:         senderID,
		Plaintext:        content.Plaintext,
		EncryptedPayload: content.EncryptedPayload,
	}

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.messageRepo.Create(ctx, message); err != nil {
			return err
		}
		return uc.convRepo.Touch(ctx, conversationID)
	})
	if err != nil {
		return nil, err
	}

	return uc.messageRepo.GetByID(ctx, message.ID)
}

// ListSince returns conversation messages in (created_at, id) order, strictly
// after the optional cursor message. limit == 0 returns everything. The
// cursor message must belong to the conversation being listed.
func (uc *MessageStore) ListSince(
	ctx context.Context,
	conversationID, userID uuid.UUID,
	after *uuid.UUID,
	limit int,
) ([]*domain.Message, error) {
	if err := uc.conversations.Authorize(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if after != nil {
		cursorMessage, err := uc.messageRepo.GetByID(ctx, *after)
		if err != nil {
			return nil, err
		}
		if cursorMessage.ConversationID != conversationID {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "cursor message belongs to another conversation")
		}
	}

	return uc.messageRepo.ListSince(ctx, conversationID, after, limit)
}

// MarkRead advances the user's read cursor to the newest message and returns
// how many messages from other senders were newly read. Calling it again
// without new traffic returns 0.
func (uc *MessageStore) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	if err := uc.conversations.Authorize(ctx, conversationID, userID); err != nil {
		return 0, err
	}

	latestID, err := uc.messageRepo.LatestMessageID(ctx, conversationID)
	if err != nil {
		if apperrors.Is(err, domain.ErrMessageNotFound) {
			// Empty conversation, nothing to mark
			return 0, nil
		}
		return 0, err
	}

	cursor, err := uc.cursorRepo.Get(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	var after *uuid.UUID
	if cursor != nil {
		if cursor.LastMessageID == latestID {
			return 0, nil
		}
		after = &cursor.LastMessageID
	}

	unread, err := uc.messageRepo.CountUnreadAfter(ctx, conversationID, userID, after)
	if err != nil {
		return 0, err
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.cursorRepo.Upsert(ctx, &domain.ReadCursor{
			ConversationID: conversationID,
			UserID:         userID,
			LastMessageID:  latestID,
		})
	})
	if err != nil {
		return 0, err
	}

	return unread, nil
}

// UnreadCounts reports per-conversation unread counts for the user without
// touching any cursor. Fully-read conversations carry no entry; a missing
// conversation reads as zero.
func (uc *MessageStore) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	return uc.messageRepo.UnreadCounts(ctx, userID)
}
