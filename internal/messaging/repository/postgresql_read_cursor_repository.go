package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/messaging/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// PostgreSQLReadCursorRepository handles read cursor persistence for PostgreSQL
type PostgreSQLReadCursorRepository struct {
	db *sql.DB
}

// NewPostgreSQLReadCursorRepository creates a new PostgreSQLReadCursorRepository
func NewPostgreSQLReadCursorRepository(db *sql.DB) *PostgreSQLReadCursorRepository {
	return &PostgreSQLReadCursorRepository{
		db: db,
	}
}

// Get retrieves a user's read cursor in a conversation. Returns nil without
// error when the user has never marked the conversation read.
func (r *PostgreSQLReadCursorRepository) Get(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ReadCursor, error) {
	var cursor domain.ReadCursor
	querier := database.GetTx(ctx, r.db)

	query := `SELECT conversation_id, user_id, last_message_id, updated_at
			  FROM read_cursors WHERE conversation_id = $1 AND user_id = $2`

	err := querier.QueryRowContext(ctx, query, conversationID, userID).Scan(
		&cursor.ConversationID, &cursor.UserID, &cursor.LastMessageID, &cursor.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to get read cursor")
	}

	return &cursor, nil
}

// Upsert advances the user's read cursor to the given message
func (r *PostgreSQLReadCursorRepository) Upsert(ctx context.Context, cursor *domain.ReadCursor) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO read_cursors (conversation_id, user_id, last_message_id, updated_at)
			  VALUES ($1, $2, $3, NOW())
			  ON CONFLICT (conversation_id, user_id) DO UPDATE SET
			      last_message_id = EXCLUDED.last_message_id,
			      updated_at = NOW()`

	_, err := querier.ExecContext(ctx, query, cursor.ConversationID, cursor.UserID, cursor.LastMessageID)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert read cursor")
	}
	return nil
}
