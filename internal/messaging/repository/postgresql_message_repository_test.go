package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/dmcore/internal/messaging/domain"
	"github.com/quietwire/dmcore/internal/testutil"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

func appendTestMessage(t *testing.T, repo *PostgreSQLMessageRepository, conversationID, senderID uuid.UUID, text string) *domain.Message {
	t.Helper()

	message := &domain.Message{
		ID:             uuid.Must(uuid.NewV7()),
		ConversationID: conversationID,
		SenderID:       senderID,
		Plaintext:      &text,
	}
	require.NoError(t, repo.Create(context.Background(), message))
	return message
}

func TestPostgreSQLMessageRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLMessageRepository(db)
	ctx := context.Background()

	userA := uuid.Must(uuid.NewV7())
	userB := uuid.Must(uuid.NewV7())
	conversationID := testutil.CreateTestConversation(t, db, userA, userB)

	message := appendTestMessage(t, repo, conversationID, userA, "hello")

	created, err := repo.GetByID(ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, message.ID, created.ID)
	assert.Equal(t, conversationID, created.ConversationID)
	assert.Equal(t, userA, created.SenderID)
	require.NotNil(t, created.Plaintext)
	assert.Equal(t, "hello", *created.Plaintext)
	assert.Nil(t, created.EncryptedPayload)
	assert.False(t, created.Encrypted())
	assert.False(t, created.CreatedAt.IsZero())
}

func TestPostgreSQLMessageRepository_Create_Encrypted(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLMessageRepository(db)
	ctx := context.Background()

	userA := uuid.Must(uuid.NewV7())
	userB := uuid.Must(uuid.NewV7())
	conversationID := testutil.CreateTestConversation(t, db, userA, userB)

	message := &domain.Message{
		ID:               uuid.Must(uuid.NewV7()),
		ConversationID:   conversationID,
		SenderID:         userA,
		EncryptedPayload: []byte{1, 2, 3, 4},
	}
	require.NoError(t, repo.Create(ctx, message))

	created, err := repo.GetByID(ctx, message.ID)
	require.NoError(t, err)
	assert.Nil(t, created.Plaintext)
	assert.Equal(t, []byte{1, 2, 3, 4}, created.EncryptedPayload)
	assert.True(t, created.Encrypted())
}

func TestPostgreSQLMessageRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLMessageRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.Must(uuid.NewV7()))
	assert.True(t, apperrors.Is(err, domain.ErrMessageNotFound))
}

func TestPostgreSQLMessageRepository_ListSince(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLMessageRepository(db)
	ctx := context.Background()

	userA := uuid.Must(uuid.NewV7())
	userB := uuid.Must(uuid.NewV7())
	conversationID := testutil.CreateTestConversation(t, db, userA, userB)

	first := appendTestMessage(t, repo, conversationID, userA, "first")
	second := appendTestMessage(t, repo, conversationID, userB, "second")
	third := appendTestMessage(t, repo, conversationID, userA, "third")

	t.Run("FullHistoryInOrder", func(t *testing.T) {
		messages, err := repo.ListSince(ctx, conversationID, nil, 0)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, first.ID, messages[0].ID)
		assert.Equal(t, second.ID, messages[1].ID)
		assert.Equal(t, third.ID, messages[2].ID)
	})

	t.Run("CursorRestart", func(t *testing.T) {
		messages, err := repo.ListSince(ctx, conversationID, &first.ID, 0)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, second.ID, messages[0].ID)
		assert.Equal(t, third.ID, messages[1].ID)
	})

	t.Run("Limit", func(t *testing.T) {
		messages, err := repo.ListSince(ctx, conversationID, nil, 2)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, first.ID, messages[0].ID)
		assert.Equal(t, second.ID, messages[1].ID)
	})

	t.Run("AfterLatestIsEmpty", func(t *testing.T) {
		messages, err := repo.ListSince(ctx, conversationID, &third.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestPostgreSQLMessageRepository_LatestMessageID(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLMessageRepository(db)
	ctx := context.Background()

	userA := uuid.Must(uuid.NewV7())
	userB := uuid.Must(uuid.NewV7())
	conversationID := testutil.CreateTestConversation(t, db, userA, userB)

	_, err := repo.LatestMessageID(ctx, conversationID)
	assert.True(t, apperrors.Is(err, domain.ErrMessageNotFound))

	appendTestMessage(t, repo, conversationID, userA, "first")
	latest := appendTestMessage(t, repo, conversationID, userB, "second")

	latestID, err := repo.LatestMessageID(ctx, conversationID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, latestID)
}

func TestPostgreSQLMessageRepository_CountUnreadAfter(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLMessageRepository(db)
	ctx := context.Background()

	userA := uuid.Must(uuid.NewV7())
	userB := uuid.Must(uuid.NewV7())
	conversationID := testutil.CreateTestConversation(t, db, userA, userB)

	fromB := appendTestMessage(t, repo, conversationID, userB, "from b")
	appendTestMessage(t, repo, conversationID, userA, "own message")
	appendTestMessage(t, repo, conversationID, userB, "also from b")

	// Own messages never count
	count, err := repo.CountUnreadAfter(ctx, conversationID, userA, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountUnreadAfter(ctx, conversationID, userA, &fromB.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPostgreSQLMessageRepository_UnreadCounts(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	messageRepo := NewPostgreSQLMessageRepository(db)
	cursorRepo := NewPostgreSQLReadCursorRepository(db)
	ctx := context.Background()

	userID := uuid.Must(uuid.NewV7())
	otherA := uuid.Must(uuid.NewV7())
	otherB := uuid.Must(uuid.NewV7())
	convA := testutil.CreateTestConversation(t, db, userID, otherA)
	convB := testutil.CreateTestConversation(t, db, userID, otherB)

	readA := appendTestMessage(t, messageRepo, convA, otherA, "read")
	appendTestMessage(t, messageRepo, convA, otherA, "unread")
	appendTestMessage(t, messageRepo, convA, userID, "own")
	appendTestMessage(t, messageRepo, convB, otherB, "unread one")
	appendTestMessage(t, messageRepo, convB, otherB, "unread two")

	require.NoError(t, cursorRepo.Upsert(ctx, &domain.ReadCursor{
		ConversationID: convA,
		UserID:         userID,
		LastMessageID:  readA.ID,
	}))

	counts, err := messageRepo.UnreadCounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{convA: 1, convB: 2}, counts)

	// Reading never mutates state
	countsAgain, err := messageRepo.UnreadCounts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, counts, countsAgain)
}

func TestPostgreSQLReadCursorRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	messageRepo := NewPostgreSQLMessageRepository(db)
	cursorRepo := NewPostgreSQLReadCursorRepository(db)
	ctx := context.Background()

	userA := uuid.Must(uuid.NewV7())
	userB := uuid.Must(uuid.NewV7())
	conversationID := testutil.CreateTestConversation(t, db, userA, userB)

	first := appendTestMessage(t, messageRepo, conversationID, userB, "first")
	second := appendTestMessage(t, messageRepo, conversationID, userB, "second")

	cursor, err := cursorRepo.Get(ctx, conversationID, userA)
	require.NoError(t, err)
	assert.Nil(t, cursor)

	require.NoError(t, cursorRepo.Upsert(ctx, &domain.ReadCursor{
		ConversationID: conversationID,
		UserID:         userA,
		LastMessageID:  first.ID,
	}))

	cursor, err = cursorRepo.Get(ctx, conversationID, userA)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, first.ID, cursor.LastMessageID)

	require.NoError(t, cursorRepo.Upsert(ctx, &domain.ReadCursor{
		ConversationID: conversationID,
		UserID:         userA,
		LastMessageID:  second.ID,
	}))

	cursor, err = cursorRepo.Get(ctx, conversationID, userA)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, second.ID, cursor.LastMessageID)
}
