// Package usecase wires the search index to the vault session and the stored
// message history.
package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	keyvaultUseCase "github.com/quietwire/dmcore/internal/keyvault/usecase"
	messagingDomain "github.com/quietwire/dmcore/internal/messaging/domain"
	messagingUseCase "github.com/quietwire/dmcore/internal/messaging/usecase"
	"github.com/quietwire/dmcore/internal/search/service"
)

// SearchUseCase defines the interface for search operations
type SearchUseCase interface {
	Rebuild(ctx context.Context, userID uuid.UUID) error
	Search(ctx context.Context, userID uuid.UUID, query string, conversationID *uuid.UUID) ([]service.Hit, error)
}

// SearchCoordinator handles search business logic. It owns no message state:
// the index is rebuilt from storage on demand and lives only as long as the
// vault session that can decrypt it.
type SearchCoordinator struct {
	indexer       *service.SearchIndexer
	vault         keyvaultUseCase.VaultUseCase
	conversations messagingUseCase.ConversationUseCase
	messages      messagingUseCase.MessageUseCase
	logger        *slog.Logger
}

// NewSearchCoordinator creates a new SearchCoordinator
func NewSearchCoordinator(
	indexer *service.SearchIndexer,
	vault keyvaultUseCase.VaultUseCase,
	conversations messagingUseCase.ConversationUseCase,
	messages messagingUseCase.MessageUseCase,
	logger *slog.Logger,
) *SearchCoordinator {
	return &SearchCoordinator{
		indexer:       indexer,
		vault:         vault,
		conversations: conversations,
		messages:      messages,
		logger:        logger,
	}
}

// Rebuild re-indexes the user's full message history under the live unlock
// session. Requires an unlocked vault.
func (uc *SearchCoordinator) Rebuild(ctx context.Context, userID uuid.UUID) error {
	session, err := uc.vault.Session(userID)
	if err != nil {
		return err
	}

	conversations, err := uc.conversations.List(ctx, userID)
	if err != nil {
		return err
	}

	var corpus []*messagingDomain.Message
	for _, conversation := range conversations {
		messages, err := uc.messages.ListSince(ctx, conversation.ID, userID, nil, 0)
		if err != nil {
			return err
		}
		corpus = append(corpus, messages...)
	}

	if err := uc.indexer.Build(ctx, session, corpus); err != nil {
		return err
	}

	uc.logger.Info("search index rebuilt",
		slog.String("user_id", userID.String()),
		slog.Int("messages", len(corpus)),
	)
	return nil
}

// Search answers a query against the user's index, lazily rebuilding it when
// the snapshot is missing or belongs to a previous unlock.
func (uc *SearchCoordinator) Search(
	ctx context.Context,
	userID uuid.UUID,
	query string,
	conversationID *uuid.UUID,
) ([]service.Hit, error) {
	session, err := uc.vault.Session(userID)
	if err != nil {
		return nil, err
	}

	if !uc.indexer.Ready(userID, session.Epoch()) {
		if err := uc.Rebuild(ctx, userID); err != nil {
			return nil, err
		}
	}

	return uc.indexer.Search(userID, session.Epoch(), query, conversationID)
}
