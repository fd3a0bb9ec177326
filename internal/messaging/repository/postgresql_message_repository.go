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

// PostgreSQLMessageRepository handles message persistence for PostgreSQL
type PostgreSQLMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLMessageRepository creates a new PostgreSQLMessageRepository
func NewPostgreSQLMessageRepository(db *sql.DB) *PostgreSQLMessageRepository {
	return &PostgreSQLMessageRepository{
		db: db,
	}
}

// Create inserts a new message
func (r *PostgreSQLMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO messages (id, conversation_id, sender_id, plaintext, encrypted_payload, created_at)
			  VALUES ($1, $2, $3, $4, $5, NOW())`

	_, err := querier.ExecContext(ctx, query,
		message.ID, message.ConversationID, message.SenderID, message.Plaintext, message.EncryptedPayload,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create message")
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *PostgreSQLMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, conversation_id, sender_id, plaintext, encrypted_payload, created_at
			  FROM messages WHERE id = $1`

	message, err := scanMessage(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get message by id")
	}
	return message, nil
}

// ListSince returns a conversation's messages in (created_at, id) order,
// strictly after the given message when a cursor is set. limit == 0 means no
// limit.
func (r *PostgreSQLMessageRepository) ListSince(
	ctx context.Context,
	conversationID uuid.UUID,
	after *uuid.UUID,
	limit int,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT m.id, m.conversation_id, m.sender_id, m.plaintext, m.encrypted_payload, m.created_at
			  FROM messages m
			  WHERE m.conversation_id = $1
			    AND ($2::uuid IS NULL OR (m.created_at, m.id) >
			        (SELECT a.created_at, a.id FROM messages a WHERE a.id = $2))
			  ORDER BY m.created_at, m.id
			  LIMIT CASE WHEN $3 > 0 THEN $3 ELSE NULL END`

	rows, err := querier.QueryContext(ctx, query, conversationID, after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list messages")
	}
	defer func() { _ = rows.Close() }()

	var messages []*domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan message")
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate messages")
	}

	return messages, nil
}

// LatestMessageID returns the id of the newest message in the conversation.
// ErrMessageNotFound when the conversation has no messages yet.
func (r *PostgreSQLMessageRepository) LatestMessageID(ctx context.Context, conversationID uuid.UUID) (uuid.UUID, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id FROM messages
			  WHERE conversation_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	var id uuid.UUID
	err := querier.QueryRowContext(ctx, query, conversationID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.ErrMessageNotFound
		}
		return uuid.Nil, apperrors.Wrap(err, "failed to get latest message id")
	}
	return id, nil
}

// CountUnreadAfter counts messages from other senders strictly after the
// cursor message. A nil cursor counts every message from other senders.
func (r *PostgreSQLMessageRepository) CountUnreadAfter(
	ctx context.Context,
	conversationID, userID uuid.UUID,
	after *uuid.UUID,
) (int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT COUNT(*)
			  FROM messages m
			  WHERE m.conversation_id = $1
			    AND m.sender_id <> $2
			    AND ($3::uuid IS NULL OR (m.created_at, m.id) >
			        (SELECT a.created_at, a.id FROM messages a WHERE a.id = $3))`

	var count int
	if err := querier.QueryRowContext(ctx, query, conversationID, userID, after).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count unread messages")
	}
	return count, nil
}

// UnreadCounts returns per-conversation unread counts for the user across all
// conversations the user participates in. Conversations with nothing unread
// are omitted. Own messages are never counted.
func (r *PostgreSQLMessageRepository) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT m.conversation_id, COUNT(*)
			  FROM messages m
			  JOIN conversation_participants p
			    ON p.conversation_id = m.conversation_id AND p.user_id = $1
			  LEFT JOIN read_cursors rc
			    ON rc.conversation_id = m.conversation_id AND rc.user_id = $1
			  LEFT JOIN messages cur ON cur.id = rc.last_message_id
			  WHERE m.sender_id <> $1
			    AND (rc.last_message_id IS NULL OR (m.created_at, m.id) > (cur.created_at, cur.id))
			  GROUP BY m.conversation_id`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query unread counts")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var conversationID uuid.UUID
		var count int
		if err := rows.Scan(&conversationID, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan unread count")
		}
		counts[conversationID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate unread counts")
	}

	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(scanner rowScanner) (*domain.Message, error) {
	var message domain.Message
	err := scanner.Scan(
		&message.ID, &message.ConversationID, &message.SenderID,
		&message.Plaintext, &message.EncryptedPayload, &message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
