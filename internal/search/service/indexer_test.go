package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
	keyvaultService "github.com/quietwire/dmcore/internal/keyvault/service"
	messagingDomain "github.com/quietwire/dmcore/internal/messaging/domain"
)

type indexerFixture struct {
	indexer    *SearchIndexer
	cipher     keyvaultService.HybridCipher
	sessions   *keyvaultService.SessionManager
	session    *keyvaultService.Session
	userID     uuid.UUID
	publicKey  []byte
	privateKey []byte
}

func newIndexerFixture(t *testing.T) *indexerFixture {
	t.Helper()

	cipher := keyvaultService.NewHybridCipher()
	publicKey, privateKey, err := cipher.GenerateKeyPair()
	require.NoError(t, err)

	sessions := keyvaultService.NewSessionManager(time.Minute, nil)
	t.Cleanup(sessions.LockAll)

	userID := uuid.Must(uuid.NewV7())
	keyCopy := append([]byte(nil), privateKey...)
	session := sessions.Unlock(userID, keyCopy)

	return &indexerFixture{
		indexer:    NewSearchIndexer(cipher, 2),
		cipher:     cipher,
		sessions:   sessions,
		session:    session,
		userID:     userID,
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

func (fx *indexerFixture) plainMessage(t *testing.T, conversationID uuid.UUID, body string, at time.Time) *messagingDomain.Message {
	t.Helper()
	return &messagingDomain.Message{
		ID:             uuid.Must(uuid.NewV7()),
		ConversationID: conversationID,
		SenderID:       fx.userID,
		Plaintext:      &body,
		CreatedAt:      at,
	}
}

func (fx *indexerFixture) encryptedMessage(t *testing.T, conversationID uuid.UUID, body string, at time.Time) *messagingDomain.Message {
	t.Helper()

	envelope, err := fx.cipher.EncryptFor([]byte(body), fx.publicKey)
	require.NoError(t, err)
	payload, err := keyvaultDomain.EncodeEnvelope(envelope)
	require.NoError(t, err)

	return &messagingDomain.Message{
		ID:               uuid.Must(uuid.NewV7()),
		ConversationID:   conversationID,
		SenderID:         fx.userID,
		EncryptedPayload: payload,
		CreatedAt:        at,
	}
}

func TestSearchIndexer_BuildAndSearch(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()
	conversationID := uuid.Must(uuid.NewV7())
	base := time.Now()

	messages := []*messagingDomain.Message{
		fx.plainMessage(t, conversationID, "we should meet on Friday", base),
		fx.encryptedMessage(t, conversationID, "the MEETING moved to Monday", base.Add(time.Second)),
		fx.plainMessage(t, conversationID, "unrelated chatter", base.Add(2*time.Second)),
	}
	require.NoError(t, fx.indexer.Build(ctx, fx.session, messages))

	hits, err := fx.indexer.Search(fx.userID, fx.session.Epoch(), "meet", nil)
	require.NoError(t, err)
	require.Len(t, hits, 2, "matches plaintext and decrypted content, case-insensitive")
	assert.Equal(t, messages[1].ID, hits[0].MessageID, "newest hit first")
	assert.Equal(t, messages[0].ID, hits[1].MessageID)
	assert.Contains(t, hits[0].Snippet, "meeting")
}

func TestSearchIndexer_Search_ConversationFilter(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()
	conversationA := uuid.Must(uuid.NewV7())
	conversationB := uuid.Must(uuid.NewV7())
	base := time.Now()

	require.NoError(t, fx.indexer.Build(ctx, fx.session, []*messagingDomain.Message{
		fx.plainMessage(t, conversationA, "shared keyword here", base),
		fx.plainMessage(t, conversationB, "shared keyword there", base.Add(time.Second)),
	}))

	hits, err := fx.indexer.Search(fx.userID, fx.session.Epoch(), "shared keyword", &conversationA)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, conversationA, hits[0].ConversationID)
}

func TestSearchIndexer_Search_Snippet(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()
	conversationID := uuid.Must(uuid.NewV7())

	long := "this is a very long message with lots of filler text before the needle appears and then even more filler text after it"
	require.NoError(t, fx.indexer.Build(ctx, fx.session, []*messagingDomain.Message{
		fx.plainMessage(t, conversationID, long, time.Now()),
	}))

	hits, err := fx.indexer.Search(fx.userID, fx.session.Epoch(), "needle", nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Snippet, "needle")
	assert.LessOrEqual(t, len(hits[0].Snippet), 60)
	assert.Less(t, len(hits[0].Snippet), len(long))
}

func TestSearchIndexer_Search_NotReady(t *testing.T) {
	fx := newIndexerFixture(t)

	_, err := fx.indexer.Search(fx.userID, fx.session.Epoch(), "anything", nil)

	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestSearchIndexer_Search_StaleEpoch(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()
	conversationID := uuid.Must(uuid.NewV7())

	require.NoError(t, fx.indexer.Build(ctx, fx.session, []*messagingDomain.Message{
		fx.plainMessage(t, conversationID, "hello", time.Now()),
	}))

	// Lock and unlock again: a new epoch invalidates the old snapshot
	fx.sessions.Lock(fx.userID)
	keyCopy := append([]byte(nil), fx.privateKey...)
	session := fx.sessions.Unlock(fx.userID, keyCopy)

	_, err := fx.indexer.Search(fx.userID, session.Epoch(), "hello", nil)
	assert.ErrorIs(t, err, ErrIndexNotReady)
	assert.False(t, fx.indexer.Ready(fx.userID, session.Epoch()))
}

func TestSearchIndexer_Build_LockedSession(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()

	fx.sessions.Lock(fx.userID)

	err := fx.indexer.Build(ctx, fx.session, nil)
	assert.ErrorIs(t, err, keyvaultDomain.ErrVaultLocked)
}

func TestSearchIndexer_Build_SkipsUndecryptable(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()
	conversationID := uuid.Must(uuid.NewV7())

	otherPublic, _, err := fx.cipher.GenerateKeyPair()
	require.NoError(t, err)
	envelope, err := fx.cipher.EncryptFor([]byte("sealed for someone else"), otherPublic)
	require.NoError(t, err)
	foreignPayload, err := keyvaultDomain.EncodeEnvelope(envelope)
	require.NoError(t, err)

	messages := []*messagingDomain.Message{
		fx.plainMessage(t, conversationID, "readable text", time.Now()),
		{
			ID:               uuid.Must(uuid.NewV7()),
			ConversationID:   conversationID,
			SenderID:         fx.userID,
			EncryptedPayload: foreignPayload,
			CreatedAt:        time.Now(),
		},
		{
			ID:               uuid.Must(uuid.NewV7()),
			ConversationID:   conversationID,
			SenderID:         fx.userID,
			EncryptedPayload: []byte("not an envelope"),
			CreatedAt:        time.Now(),
		},
	}
	require.NoError(t, fx.indexer.Build(ctx, fx.session, messages))

	hits, err := fx.indexer.Search(fx.userID, fx.session.Epoch(), "readable", nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = fx.indexer.Search(fx.userID, fx.session.Epoch(), "someone else", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchIndexer_Drop(t *testing.T) {
	fx := newIndexerFixture(t)
	ctx := context.Background()
	conversationID := uuid.Must(uuid.NewV7())

	require.NoError(t, fx.indexer.Build(ctx, fx.session, []*messagingDomain.Message{
		fx.plainMessage(t, conversationID, "hello", time.Now()),
	}))
	require.True(t, fx.indexer.Ready(fx.userID, fx.session.Epoch()))

	fx.indexer.Drop(fx.userID)

	_, err := fx.indexer.Search(fx.userID, fx.session.Epoch(), "hello", nil)
	assert.ErrorIs(t, err, ErrIndexNotReady)
}
