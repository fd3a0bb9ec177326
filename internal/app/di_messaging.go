package app

import (
	"fmt"

	messagingHTTP "github.com/quietwire/dmcore/internal/messaging/http"
	messagingRepository "github.com/quietwire/dmcore/internal/messaging/repository"
	messagingUseCase "github.com/quietwire/dmcore/internal/messaging/usecase"
)

// ConversationRepository returns the conversation repository instance.
func (c *Container) ConversationRepository() (messagingUseCase.ConversationRepository, error) {
	var err error
	c.conversationRepoInit.Do(func() {
		c.conversationRepo, err = c.initConversationRepository()
		if err != nil {
			c.initErrors["conversationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conversationRepo"]; exists {
		return nil, storedErr
	}
	return c.conversationRepo, nil
}

// MessageRepository returns the message repository instance.
func (c *Container) MessageRepository() (messagingUseCase.MessageRepository, error) {
	var err error
	c.messageRepoInit.Do(func() {
		c.messageRepo, err = c.initMessageRepository()
		if err != nil {
			c.initErrors["messageRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["messageRepo"]; exists {
		return nil, storedErr
	}
	return c.messageRepo, nil
}

// ReadCursorRepository returns the read cursor repository instance.
func (c *Container) ReadCursorRepository() (messagingUseCase.ReadCursorRepository, error) {
	var err error
	c.readCursorRepoInit.Do(func() {
		c.readCursorRepo, err = c.initReadCursorRepository()
		if err != nil {
			c.initErrors["readCursorRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["readCursorRepo"]; exists {
		return nil, storedErr
	}
	return c.readCursorRepo, nil
}

// ConversationUseCase returns the conversation use case instance.
func (c *Container) ConversationUseCase() (messagingUseCase.ConversationUseCase, error) {
	var err error
	c.conversationUseCaseInit.Do(func() {
		c.conversationUseCase, err = c.initConversationUseCase()
		if err != nil {
			c.initErrors["conversationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conversationUseCase"]; exists {
		return nil, storedErr
	}
	return c.conversationUseCase, nil
}

// MessageUseCase returns the message use case instance.
func (c *Container) MessageUseCase() (messagingUseCase.MessageUseCase, error) {
	var err error
	c.messageUseCaseInit.Do(func() {
		c.messageUseCase, err = c.initMessageUseCase()
		if err != nil {
			c.initErrors["messageUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["messageUseCase"]; exists {
		return nil, storedErr
	}
	return c.messageUseCase, nil
}

// ConversationHandler returns the messaging HTTP handler instance.
func (c *Container) ConversationHandler() (*messagingHTTP.ConversationHandler, error) {
	var err error
	c.conversationHandlerInit.Do(func() {
		c.conversationHandler, err = c.initConversationHandler()
		if err != nil {
			c.initErrors["conversationHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conversationHandler"]; exists {
		return nil, storedErr
	}
	return c.conversationHandler, nil
}

// initConversationRepository creates the conversation repository instance.
func (c *Container) initConversationRepository() (messagingUseCase.ConversationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for conversation repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return messagingRepository.NewMySQLConversationRepository(db), nil
	case "postgres":
		return messagingRepository.NewPostgreSQLConversationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initMessageRepository creates the message repository instance.
func (c *Container) initMessageRepository() (messagingUseCase.MessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for message repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return messagingRepository.NewMySQLMessageRepository(db), nil
	case "postgres":
		return messagingRepository.NewPostgreSQLMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initReadCursorRepository creates the read cursor repository instance.
func (c *Container) initReadCursorRepository() (messagingUseCase.ReadCursorRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for read cursor repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return messagingRepository.NewMySQLReadCursorRepository(db), nil
	case "postgres":
		return messagingRepository.NewPostgreSQLReadCursorRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initConversationUseCase creates the conversation use case with all its dependencies.
func (c *Container) initConversationUseCase() (messagingUseCase.ConversationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for conversation use case: %w", err)
	}

	conversationRepo, err := c.ConversationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation repository for conversation use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for conversation use case: %w", err)
	}

	useCase := messagingUseCase.NewConversationResolver(txManager, conversationRepo, c.Logger())
	return messagingUseCase.NewConversationUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initMessageUseCase creates the message use case with all its dependencies.
func (c *Container) initMessageUseCase() (messagingUseCase.MessageUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for message use case: %w", err)
	}

	messageRepo, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for message use case: %w", err)
	}

	cursorRepo, err := c.ReadCursorRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get read cursor repository for message use case: %w", err)
	}

	conversationUseCase, err := c.ConversationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation use case for message use case: %w", err)
	}

	conversationRepo, err := c.ConversationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation repository for message use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for message use case: %w", err)
	}

	useCase := messagingUseCase.NewMessageStore(
		txManager,
		messageRepo,
		cursorRepo,
		conversationUseCase,
		conversationRepo,
		c.Logger(),
	)

	return messagingUseCase.NewMessageUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initConversationHandler creates the messaging HTTP handler with all its dependencies.
func (c *Container) initConversationHandler() (*messagingHTTP.ConversationHandler, error) {
	conversationUseCase, err := c.ConversationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation use case for conversation handler: %w", err)
	}

	messageUseCase, err := c.MessageUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get message use case for conversation handler: %w", err)
	}

	return messagingHTTP.NewConversationHandler(conversationUseCase, messageUseCase, c.Logger()), nil
}
