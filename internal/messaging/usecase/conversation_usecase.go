// Package usecase implements the messaging business logic: conversation
// identity resolution, message append and listing, and read tracking.
package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/messaging/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// ConversationRepository interface defines conversation repository operations
type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	EnsureParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	CountParticipants(ctx context.Context, conversationID uuid.UUID) (int, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
	Touch(ctx context.Context, conversationID uuid.UUID) error
}

// ConversationUseCase defines the interface for conversation operations
type ConversationUseCase interface {
	FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error)
	Authorize(ctx context.Context, conversationID, userID uuid.UUID) error
	Repair(ctx context.Context, conversationID, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
}

// ConversationResolver handles conversation identity resolution
type ConversationResolver struct {
	txManager        database.TxManager
	conversationRepo ConversationRepository
	logger           *slog.Logger
}

// NewConversationResolver creates a new ConversationResolver
func NewConversationResolver(
	txManager database.TxManager,
	conversationRepo ConversationRepository,
	logger *slog.Logger,
) *ConversationResolver {
	return &ConversationResolver{
		txManager:        txManager,
		conversationRepo: conversationRepo,
		logger:           logger,
	}
}

// FindOrCreate resolves the single conversation between two users, creating
// it when absent. Safe to call concurrently from both sides: the normalized
// pair index makes one writer win, and the loser adopts the winner's row.
func (uc *ConversationResolver) FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	if userA == userB {
		return nil, domain.ErrSelfConversation
	}

	conversation, err := uc.conversationRepo.GetByPair(ctx, userA, userB)
	if err == nil {
		return conversation, nil
	}
	if !apperrors.Is(err, domain.ErrConversationNotFound) {
		return nil, err
	}

	conversation, err = uc.createVerified(ctx, userA, userB)
	if err == nil {
		return conversation, nil
	}
	if apperrors.Is(err, apperrors.ErrConflict) {
		// A concurrent caller created the pair first; adopt their row
		return uc.conversationRepo.GetByPair(ctx, userA, userB)
	}
	if apperrors.Is(err, domain.ErrConsistencyRepairFailed) {
		return nil, err
	}

	// One retry on transient persistence failure
	uc.logger.Warn("conversation create failed, retrying once",
		slog.String("error", err.Error()),
	)
	conversation, err = uc.createVerified(ctx, userA, userB)
	if err == nil {
		return conversation, nil
	}
	if apperrors.Is(err, apperrors.ErrConflict) {
		return uc.conversationRepo.GetByPair(ctx, userA, userB)
	}
	return nil, err
}

// createVerified creates the conversation with both participants, then
// re-reads the participant count. A shortfall triggers a compensating delete;
// if even the delete fails the conversation id is logged and the error
// surfaces as ErrConsistencyRepairFailed.
func (uc *ConversationResolver) createVerified(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	normalA, normalB := domain.NormalizePair(userA, userB)
	conversation := &domain.Conversation{
		ID:    uuid.Must(uuid.NewV7()),
		UserA: normalA,
		UserB: normalB,
	}

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
			return err
		}
		if err := uc.conversationRepo.AddParticipant(ctx, conversation.ID, normalA); err != nil {
			return err
		}
		return uc.conversationRepo.AddParticipant(ctx, conversation.ID, normalB)
	})
	if err != nil {
		return nil, err
	}

	count, err := uc.conversationRepo.CountParticipants(ctx, conversation.ID)
	if err != nil {
		return nil, uc.compensate(ctx, conversation.ID, err)
	}
	if count != 2 {
		uc.logger.Warn("conversation created with incomplete participants",
			slog.String("conversation_id", conversation.ID.String()),
			slog.Int("participants", count),
		)
		return nil, uc.compensate(ctx, conversation.ID,
			apperrors.Wrap(apperrors.ErrInternal, "incomplete participant set"))
	}

	return conversation, nil
}

// compensate deletes a conversation that failed verification. The returned
// error is the original cause unless the cleanup itself failed.
func (uc *ConversationResolver) compensate(ctx context.Context, conversationID uuid.UUID, cause error) error {
	if err := uc.conversationRepo.Delete(ctx, conversationID); err != nil {
		uc.logger.Error("conversation cleanup failed",
			slog.String("conversation_id", conversationID.String()),
			slog.String("cause", cause.Error()),
			slog.String("cleanup_error", err.Error()),
		)
		return domain.ErrConsistencyRepairFailed
	}
	return cause
}

// Authorize verifies the user participates in the conversation.
func (uc *ConversationResolver) Authorize(ctx context.Context, conversationID, userID uuid.UUID) error {
	if _, err := uc.conversationRepo.GetByID(ctx, conversationID); err != nil {
		return err
	}

	isParticipant, err := uc.conversationRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !isParticipant {
		return domain.ErrNotParticipant
	}
	return nil
}

// Repair restores a missing participant row for a user who belongs to the
// conversation's stored pair. Idempotent; it only ever adds.
func (uc *ConversationResolver) Repair(ctx context.Context, conversationID, userID uuid.UUID) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if userID != conversation.UserA && userID != conversation.UserB {
		return domain.ErrNotParticipant
	}

	if err := uc.conversationRepo.EnsureParticipant(ctx, conversationID, userID); err != nil {
		return err
	}

	uc.logger.Info("participant repaired",
		slog.String("conversation_id", conversationID.String()),
		slog.String("user_id", userID.String()),
	)
	return nil
}

// List returns the user's conversations, most recently active first.
func (uc *ConversationResolver) List(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	return uc.conversationRepo.ListByUser(ctx, userID)
}
