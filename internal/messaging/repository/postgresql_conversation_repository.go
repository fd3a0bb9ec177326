// Package repository provides data persistence implementations for messaging entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/messaging/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// PostgreSQLConversationRepository handles conversation persistence for PostgreSQL
type PostgreSQLConversationRepository struct {
	db *sql.DB
}

// NewPostgreSQLConversationRepository creates a new PostgreSQLConversationRepository
func NewPostgreSQLConversationRepository(db *sql.DB) *PostgreSQLConversationRepository {
	return &PostgreSQLConversationRepository{
		db: db,
	}
}

// Create inserts a new conversation row. The unique index on the normalized
// pair turns a concurrent duplicate into ErrConflict.
func (r *PostgreSQLConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO conversations (id, user_a, user_b, created_at, updated_at)
			  VALUES ($1, $2, $3, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, conversation.ID, conversation.UserA, conversation.UserB)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "conversation already exists for pair")
		}
		return apperrors.Wrap(err, "failed to create conversation")
	}
	return nil
}

// GetByID retrieves a conversation by ID
func (r *PostgreSQLConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var conversation domain.Conversation
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_a, user_b, created_at, updated_at
			  FROM conversations WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&conversation.ID, &conversation.UserA, &conversation.UserB,
		&conversation.CreatedAt, &conversation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get conversation by id")
	}

	return &conversation, nil
}

// GetByPair retrieves the conversation between two users, in either order.
func (r *PostgreSQLConversationRepository) GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	var conversation domain.Conversation
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_a, user_b, created_at, updated_at
			  FROM conversations
			  WHERE LEAST(user_a, user_b) = LEAST($1::uuid, $2::uuid)
			    AND GREATEST(user_a, user_b) = GREATEST($1::uuid, $2::uuid)`

	err := querier.QueryRowContext(ctx, query, userA, userB).Scan(
		&conversation.ID, &conversation.UserA, &conversation.UserB,
		&conversation.CreatedAt, &conversation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get conversation by pair")
	}

	return &conversation, nil
}

// Delete removes a conversation and, via cascade, its participants. Used only
// as the compensating action when participant creation came up short.
func (r *PostgreSQLConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM conversations WHERE id = $1`

	if _, err := querier.ExecContext(ctx, query, id); err != nil {
		return apperrors.Wrap(err, "failed to delete conversation")
	}
	return nil
}

// AddParticipant inserts a participant row
func (r *PostgreSQLConversationRepository) AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO conversation_participants (conversation_id, user_id, created_at)
			  VALUES ($1, $2, NOW())`

	if _, err := querier.ExecContext(ctx, query, conversationID, userID); err != nil {
		return apperrors.Wrap(err, "failed to add participant")
	}
	return nil
}

// EnsureParticipant inserts a participant row if missing. Idempotent; it
// never removes or rewrites existing rows.
func (r *PostgreSQLConversationRepository) EnsureParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO conversation_participants (conversation_id, user_id, created_at)
			  VALUES ($1, $2, NOW())
			  ON CONFLICT (conversation_id, user_id) DO NOTHING`

	if _, err := querier.ExecContext(ctx, query, conversationID, userID); err != nil {
		return apperrors.Wrap(err, "failed to ensure participant")
	}
	return nil
}

// CountParticipants returns the number of participant rows for a conversation
func (r *PostgreSQLConversationRepository) CountParticipants(ctx context.Context, conversationID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = $1`

	var count int
	if err := querier.QueryRowContext(ctx, query, conversationID).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count participants")
	}
	return count, nil
}

// IsParticipant reports whether the user has a participant row in the conversation
func (r *PostgreSQLConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS (
		SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2
	)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check participant")
	}
	return exists, nil
}

// ListByUser returns the user's conversations, most recently updated first.
// Conversations with an incomplete participant set are filtered out.
func (r *PostgreSQLConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT c.id, c.user_a, c.user_b, c.created_at, c.updated_at
			  FROM conversations c
			  JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = $1
			  WHERE (SELECT COUNT(*) FROM conversation_participants cp WHERE cp.conversation_id = c.id) = 2
			  ORDER BY c.updated_at DESC, c.id DESC`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list conversations")
	}
	defer func() { _ = rows.Close() }()

	var conversations []*domain.Conversation
	for rows.Next() {
		var conversation domain.Conversation
		if err := rows.Scan(
			&conversation.ID, &conversation.UserA, &conversation.UserB,
			&conversation.CreatedAt, &conversation.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan conversation")
		}
		conversations = append(conversations, &conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate conversations")
	}

	return conversations, nil
}

// Touch bumps the conversation's updated_at, keeping recency ordering in sync
// with the latest appended message.
func (r *PostgreSQLConversationRepository) Touch(ctx context.Context, conversationID uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`

	if _, err := querier.ExecContext(ctx, query, conversationID); err != nil {
		return apperrors.Wrap(err, "failed to touch conversation")
	}
	return nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
