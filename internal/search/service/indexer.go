// Package service implements the in-memory message search index. The index
// is a derived cache over decrypted content: it exists only while the vault
// session that produced it stays unlocked, and is never persisted.
package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
	keyvaultService "github.com/quietwire/dmcore/internal/keyvault/service"
	messagingDomain "github.com/quietwire/dmcore/internal/messaging/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

const (
	// DefaultWorkers bounds concurrent payload decryption during a build.
	DefaultWorkers = 4

	// snippetLength is the approximate size of a search hit snippet.
	snippetLength = 50
)

// ErrIndexNotReady indicates no completed index matches the live vault
// session. Callers rebuild and retry.
//
// HTTP Status: 409 Conflict
var ErrIndexNotReady = apperrors.Wrap(apperrors.ErrConflict, "search index not ready")

// Hit is a single search result.
type Hit struct {
	MessageID      uuid.UUID
	ConversationID uuid.UUID
	Snippet        string
	CreatedAt      time.Time
}

// entry is one indexed message. Content is lowercased at build time so
// queries never re-normalize the corpus.
type entry struct {
	messageID      uuid.UUID
	conversationID uuid.UUID
	content        string
	createdAt      time.Time
}

// index is an immutable snapshot tied to one vault-unlock epoch.
type index struct {
	epoch   uint64
	entries []entry // newest first
}

// SearchIndexer keeps one index snapshot per user for the lifetime of their
// unlock session.
type SearchIndexer struct {
	mu      sync.RWMutex
	indexes map[uuid.UUID]*index
	cipher  keyvaultService.HybridCipher
	workers int
}

// NewSearchIndexer creates a new SearchIndexer. A non-positive workers count
// falls back to DefaultWorkers.
func NewSearchIndexer(cipher keyvaultService.HybridCipher, workers int) *SearchIndexer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &SearchIndexer{
		indexes: make(map[uuid.UUID]*index),
		cipher:  cipher,
		workers: workers,
	}
}

// Build indexes the given messages under the session's current epoch,
// replacing any previous snapshot for the user. Encrypted payloads are
// decrypted on a bounded worker pool; the build aborts with ErrVaultLocked
// if the session locks mid-flight. Messages that fail to decrypt are left
// out rather than failing the build.
func (s *SearchIndexer) Build(
	ctx context.Context,
	session *keyvaultService.Session,
	messages []*messagingDomain.Message,
) error {
	if session == nil || session.Locked() {
		return keyvaultDomain.ErrVaultLocked
	}
	epoch := session.Epoch()

	entries := make([]entry, len(messages))
	skipped := make([]bool, len(messages))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for i, message := range messages {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			content, ok, err := s.contentOf(session, message)
			if err != nil {
				return err
			}
			if !ok {
				skipped[i] = true
				return nil
			}

			entries[i] = entry{
				messageID:      message.ID,
				conversationID: message.ConversationID,
				content:        strings.ToLower(content),
				createdAt:      message.CreatedAt,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	kept := make([]entry, 0, len(entries))
	for i, e := range entries {
		if !skipped[i] {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if !kept[i].createdAt.Equal(kept[j].createdAt) {
			return kept[i].createdAt.After(kept[j].createdAt)
		}
		return kept[i].messageID.String() > kept[j].messageID.String()
	})

	s.mu.Lock()
	s.indexes[session.UserID()] = &index{epoch: epoch, entries: kept}
	s.mu.Unlock()
	return nil
}

// contentOf extracts searchable text from a message. The second return is
// false for payloads that cannot be decrypted; a locked session aborts with
// an error instead.
func (s *SearchIndexer) contentOf(
	session *keyvaultService.Session,
	message *messagingDomain.Message,
) (string, bool, error) {
	if !message.Encrypted() {
		if message.Plaintext == nil {
			return "", false, nil
		}
		return *message.Plaintext, true, nil
	}

	envelope, err := keyvaultDomain.DecodeEnvelope(message.EncryptedPayload)
	if err != nil {
		return "", false, nil
	}

	var plaintext []byte
	err = session.WithPrivateKey(func(privateKey []byte) error {
		decrypted, err := s.cipher.DecryptWith(envelope, privateKey)
		if err != nil {
			return err
		}
		plaintext = decrypted
		return nil
	})
	if err != nil {
		if apperrors.Is(err, keyvaultDomain.ErrVaultLocked) {
			return "", false, err
		}
		return "", false, nil
	}
	return string(plaintext), true, nil
}

// Drop discards the user's snapshot. Wired to the session manager's onLock
// callback so a lock immediately invalidates derived plaintext.
func (s *SearchIndexer) Drop(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.indexes, userID)
	s.mu.Unlock()
}

// Ready reports whether a snapshot exists for the user at the given epoch.
func (s *SearchIndexer) Ready(userID uuid.UUID, epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.indexes[userID]
	return ok && snapshot.epoch == epoch
}

// Search returns hits for a case-insensitive substring query, newest first.
// The optional conversationID narrows results to one conversation. A missing
// snapshot or an epoch mismatch returns ErrIndexNotReady.
func (s *SearchIndexer) Search(
	userID uuid.UUID,
	epoch uint64,
	query string,
	conversationID *uuid.UUID,
) ([]Hit, error) {
	s.mu.RLock()
	snapshot, ok := s.indexes[userID]
	s.mu.RUnlock()
	if !ok || snapshot.epoch != epoch {
		return nil, ErrIndexNotReady
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []Hit{}, nil
	}

	hits := []Hit{}
	for _, e := range snapshot.entries {
		if conversationID != nil && e.conversationID != *conversationID {
			continue
		}
		at := strings.Index(e.content, needle)
		if at < 0 {
			continue
		}
		hits = append(hits, Hit{
			MessageID:      e.messageID,
			ConversationID: e.conversationID,
			Snippet:        snippet(e.content, at, len(needle)),
			CreatedAt:      e.createdAt,
		})
	}
	return hits, nil
}

// snippet cuts a window of about snippetLength characters centered on the
// first match.
func snippet(content string, matchStart, matchLen int) string {
	if len(content) <= snippetLength {
		return content
	}

	center := matchStart + matchLen/2
	start := center - snippetLength/2
	if start < 0 {
		start = 0
	}
	end := start + snippetLength
	if end > len(content) {
		end = len(content)
		start = end - snippetLength
	}

	// Stay on rune boundaries
	for start > 0 && !utf8RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8RuneStart(content[end]) {
		end++
	}
	return content[start:end]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
