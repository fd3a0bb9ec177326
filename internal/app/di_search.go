package app

import (
	"fmt"

	searchHTTP "github.com/quietwire/dmcore/internal/search/http"
	searchService "github.com/quietwire/dmcore/internal/search/service"
	searchUseCase "github.com/quietwire/dmcore/internal/search/usecase"
)

// SearchIndexer returns the in-memory search indexer instance.
func (c *Container) SearchIndexer() *searchService.SearchIndexer {
	c.searchIndexerInit.Do(func() {
		c.searchIndexer = searchService.NewSearchIndexer(c.HybridCipher(), c.config.SearchWorkers)
	})
	return c.searchIndexer
}

// SearchUseCase returns the search use case instance.
func (c *Container) SearchUseCase() (searchUseCase.SearchUseCase, error) {
	var err error
	c.searchCoordinatorInit.Do(func() {
		c.searchCoordinator, err = c.initSearchUseCase()
		if err != nil {
			c.initErrors["searchUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["searchUseCase"]; exists {
		return nil, storedErr
	}
	return c.searchCoordinator, nil
}

// SearchHandler returns the search HTTP handler instance.
func (c *Container) SearchHandler() (*searchHTTP.SearchHandler, error) {
	var err error
	c.searchHandlerInit.Do(func() {
		c.searchHandler, err = c.initSearchHandler()
		if err != nil {
			c.initErrors["searchHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["searchHandler"]; exists {
		return nil, storedErr
	}
	return c.searchHandler, nil
}

// initSearchUseCase creates the search use case with all its dependencies.
func (c *Container) initSearchUseCase() (searchUseCase.SearchUseCase, error) {
	vaultUseCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for search use case: %w", err)
	}

	conversationUseCase, err := c.ConversationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation use case for search use case: %w", err)
	}

	messageUseCase, err := c.MessageUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get message use case for search use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for search use case: %w", err)
	}

	useCase := searchUseCase.NewSearchCoordinator(
		c.SearchIndexer(),
		vaultUseCase,
		conversationUseCase,
		messageUseCase,
		c.Logger(),
	)

	return searchUseCase.NewSearchUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initSearchHandler creates the search HTTP handler with all its dependencies.
func (c *Container) initSearchHandler() (*searchHTTP.SearchHandler, error) {
	search, err := c.SearchUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get search use case for search handler: %w", err)
	}

	return searchHTTP.NewSearchHandler(search, c.Logger()), nil
}
