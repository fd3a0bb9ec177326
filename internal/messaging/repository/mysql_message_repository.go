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

// MySQLMessageRepository handles message persistence for MySQL
type MySQLMessageRepository struct {
	db *sql.DB
}

// NewMySQLMessageRepository creates a new MySQLMessageRepository
func NewMySQLMessageRepository(db *sql.DB) *MySQLMessageRepository {
	return &MySQLMessageRepository{
		db: db,
	}
}

// Create inserts a new message
func (r *MySQLMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO messages (id, conversation_id, sender_id, plaintext, encrypted_payload, created_at)
			  VALUES (?, ?, ?, ?, ?, NOW())`

	_, err := querier.ExecContext(ctx, query,
		message.ID, message.ConversationID, message.SenderID, message.Plaintext, message.EncryptedPayload,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create message")
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *MySQLMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, conversation_id, sender_id, plaintext, encrypted_payload, created_at
			  FROM messages WHERE id = ?`

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
func (r *MySQLMessageRepository) ListSince(
	ctx context.Context,
	conversationID uuid.UUID,
	after *uuid.UUID,
	limit int,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT m.id, m.conversation_id, m.sender_id, m.plaintext, m.encrypted_payload, m.created_at
			  FROM messages m
			  WHERE m.conversation_id = ?`
	args := []any{conversationID}

	if after != nil {
		query += ` AND (m.created_at, m.id) >
			(SELECT a.created_at, a.id FROM messages a WHERE a.id = ?)`
		args = append(args, *after)
	}

	query += ` ORDER BY m.created_at, m.id`

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := querier.QueryContext(ctx, query, args...)
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
func (r *MySQLMessageRepository) LatestMessageID(ctx context.Context, conversationID uuid.UUID) (uuid.UUID, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id FROM messages
			  WHERE conversation_id = ?
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
func (r *MySQLMessageRepository) CountUnreadAfter(
	ctx context.Context,
	conversationID, userID uuid.UUID,
	after *uuid.UUID,
) (int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT COUNT(*)
			  FROM messages m
			  WHERE m.conversation_id = ?
			    AND m.sender_id <> ?`
	args := []any{conversationID, userID}

	if after != nil {
		query += ` AND (m.created_at, m.id) >
			(SELECT a.created_at, a.id FROM messages a WHERE a.id = ?)`
		args = append(args, *after)
	}

	var count int
	if err := querier.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count unread messages")
	}
	return count, nil
}

// UnreadCounts returns per-conversation unread counts for the user across all
// conversations the user participates in. Conversations with nothing unread
// are omitted. Own messages are never counted.
func (r *MySQLMessageRepository) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT m.conversation_id, COUNT(*)
			  FROM messages m
			  JOIN conversation_participants p
			    ON p.conversation_id = m.conversation_id AND p.user_id = ?
			  LEFT JOIN read_cursors rc
			    ON rc.conversation_id = m.conversation_id AND rc.user_id = ?
			  LEFT JOIN messages cur ON cur.id = rc.last_message_id
			  WHERE m.sender_id <> ?
			    AND (rc.last_message_id IS NULL OR (m.created_at, m.id) > (cur.created_at, cur.id))
			  GROUP BY m.conversation_id`

	rows, err := querier.QueryContext(ctx, query, userID, userID, userID)
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
