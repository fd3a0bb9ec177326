package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/messaging/domain"
	"github.com/quietwire/dmcore/internal/metrics"
)

// conversationUseCaseWithMetrics decorates ConversationUseCase with metrics instrumentation.
type conversationUseCaseWithMetrics struct {
	next    ConversationUseCase
	metrics metrics.BusinessMetrics
}

// NewConversationUseCaseWithMetrics wraps a ConversationUseCase with metrics recording.
func NewConversationUseCaseWithMetrics(useCase ConversationUseCase, m metrics.BusinessMetrics) ConversationUseCase {
	return &conversationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// FindOrCreate records metrics for conversation resolution operations.
func (c *conversationUseCaseWithMetrics) FindOrCreate(
	ctx context.Context,
	userA, userB uuid.UUID,
) (*domain.Conversation, error) {
	start := time.Now()
	conversation, err := c.next.FindOrCreate(ctx, userA, userB)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "messaging", "conversation_resolve", status)
	c.metrics.RecordDuration(ctx, "messaging", "conversation_resolve", time.Since(start), status)

	return conversation, err
}

// Authorize passes through without recording; it runs on every message call.
func (c *conversationUseCaseWithMetrics) Authorize(ctx context.Context, conversationID, userID uuid.UUID) error {
	return c.next.Authorize(ctx, conversationID, userID)
}

// Repair records metrics for participant repair operations.
func (c *conversationUseCaseWithMetrics) Repair(ctx context.Context, conversationID, userID uuid.UUID) error {
	start := time.Now()
	err := c.next.Repair(ctx, conversationID, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "messaging", "conversation_repair", status)
	c.metrics.RecordDuration(ctx, "messaging", "conversation_repair", time.Since(start), status)

	return err
}

// List records metrics for conversation listing operations.
func (c *conversationUseCaseWithMetrics) List(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	start := time.Now()
	conversations, err := c.next.List(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "messaging", "conversation_list", status)
	c.metrics.RecordDuration(ctx, "messaging", "conversation_list", time.Since(start), status)

	return conversations, err
}

// messageUseCaseWithMetrics decorates MessageUseCase with metrics instrumentation.
type messageUseCaseWithMetrics struct {
	next    MessageUseCase
	metrics metrics.BusinessMetrics
}

// NewMessageUseCaseWithMetrics wraps a MessageUseCase with metrics recording.
func NewMessageUseCaseWithMetrics(useCase MessageUseCase, m metrics.BusinessMetrics) MessageUseCase {
	return &messageUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Append records metrics for message append operations.
func (msg *messageUseCaseWithMetrics) Append(
	ctx context.Context,
	conversationID, senderID uuid.UUID,
	content MessageContent,
) (*domain.Message, error) {
	start := time.Now()
	message, err := msg.next.Append(ctx, conversationID, senderID, content)

	status := "success"
	if err != nil {
		status = "error"
	}

	msg.metrics.RecordOperation(ctx, "messaging", "message_append", status)
	msg.metrics.RecordDuration(ctx, "messaging", "message_append", time.Since(start), status)

	return message, err
}

// ListSince records metrics for message listing operations.
func (msg *messageUseCaseWithMetrics) ListSince(
	ctx context.Context,
	conversationID, userID uuid.UUID,
	after *uuid.UUID,
	limit int,
) ([]*domain.Message, error) {
	start := time.Now()
	messages, err := msg.next.ListSince(ctx, conversationID, userID, after, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	msg.metrics.RecordOperation(ctx, "messaging", "message_list", status)
	msg.metrics.RecordDuration(ctx, "messaging", "message_list", time.Since(start), status)

	return messages, err
}

// MarkRead records metrics for read cursor advances.
func (msg *messageUseCaseWithMetrics) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	start := time.Now()
	count, err := msg.next.MarkRead(ctx, conversationID, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	msg.metrics.RecordOperation(ctx, "messaging", "mark_read", status)
	msg.metrics.RecordDuration(ctx, "messaging", "mark_read", time.Since(start), status)

	return count, err
}

// UnreadCounts records metrics for unread count queries.
func (msg *messageUseCaseWithMetrics) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	start := time.Now()
	counts, err := msg.next.UnreadCounts(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	msg.metrics.RecordOperation(ctx, "messaging", "unread_counts", status)
	msg.metrics.RecordDuration(ctx, "messaging", "unread_counts", time.Since(start), status)

	return counts, err
}
