package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	keyvaultHTTP "github.com/quietwire/dmcore/internal/keyvault/http"
	keyvaultRepository "github.com/quietwire/dmcore/internal/keyvault/repository"
	keyvaultService "github.com/quietwire/dmcore/internal/keyvault/service"
	keyvaultUseCase "github.com/quietwire/dmcore/internal/keyvault/usecase"
)

// UserKeyRepository returns the user key repository instance.
func (c *Container) UserKeyRepository() (keyvaultUseCase.UserKeyRepository, error) {
	var err error
	c.userKeyRepoInit.Do(func() {
		c.userKeyRepo, err = c.initUserKeyRepository()
		if err != nil {
			c.initErrors["userKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.userKeyRepo, nil
}

// WrappedKeyRepository returns the wrapped key repository instance.
func (c *Container) WrappedKeyRepository() (keyvaultUseCase.WrappedKeyRepository, error) {
	var err error
	c.wrappedKeyRepoInit.Do(func() {
		c.wrappedKeyRepo, err = c.initWrappedKeyRepository()
		if err != nil {
			c.initErrors["wrappedKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["wrappedKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.wrappedKeyRepo, nil
}

// HybridCipher returns the hybrid encryption cipher shared by the key vault
// and the search indexer.
func (c *Container) HybridCipher() keyvaultService.HybridCipher {
	c.hybridCipherInit.Do(func() {
		c.hybridCipher = keyvaultService.NewHybridCipher()
	})
	return c.hybridCipher
}

// SessionManager returns the vault session manager. Locking a session (manual
// or timer-driven) drops that user's search index snapshot, since the index
// holds decrypted message content.
func (c *Container) SessionManager() *keyvaultService.SessionManager {
	c.sessionManagerInit.Do(func() {
		indexer := c.SearchIndexer()
		c.sessionManager = keyvaultService.NewSessionManager(
			c.config.VaultSessionTTL,
			func(userID uuid.UUID, _ uint64) {
				indexer.Drop(userID)
			},
		)
	})
	return c.sessionManager
}

// KeystoreKeeper returns the keeper protecting wrapped key rows at rest.
// Without a configured keeper URI, rows are stored as-is (they are already
// ciphertext under a passphrase-derived key).
func (c *Container) KeystoreKeeper() (keyvaultService.KeystoreKeeper, error) {
	var err error
	c.keystoreKeeperInit.Do(func() {
		c.keystoreKeeper, err = c.initKeystoreKeeper()
		if err != nil {
			c.initErrors["keystoreKeeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keystoreKeeper"]; exists {
		return nil, storedErr
	}
	return c.keystoreKeeper, nil
}

// VaultUseCase returns the vault use case instance.
func (c *Container) VaultUseCase() (keyvaultUseCase.VaultUseCase, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

// RecoveryUseCase returns the recovery use case instance.
func (c *Container) RecoveryUseCase() (keyvaultUseCase.RecoveryUseCase, error) {
	var err error
	c.recoveryUseCaseInit.Do(func() {
		c.recoveryUseCase, err = c.initRecoveryUseCase()
		if err != nil {
			c.initErrors["recoveryUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recoveryUseCase"]; exists {
		return nil, storedErr
	}
	return c.recoveryUseCase, nil
}

// VaultHandler returns the vault HTTP handler instance.
func (c *Container) VaultHandler() (*keyvaultHTTP.VaultHandler, error) {
	var err error
	c.vaultHandlerInit.Do(func() {
		c.vaultHandler, err = c.initVaultHandler()
		if err != nil {
			c.initErrors["vaultHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultHandler"]; exists {
		return nil, storedErr
	}
	return c.vaultHandler, nil
}

// initUserKeyRepository creates the user key repository instance.
func (c *Container) initUserKeyRepository() (keyvaultUseCase.UserKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user key repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return keyvaultRepository.NewMySQLUserKeyRepository(db), nil
	case "postgres":
		return keyvaultRepository.NewPostgreSQLUserKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initWrappedKeyRepository creates the wrapped key repository instance.
func (c *Container) initWrappedKeyRepository() (keyvaultUseCase.WrappedKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for wrapped key repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return keyvaultRepository.NewMySQLWrappedKeyRepository(db), nil
	case "postgres":
		return keyvaultRepository.NewPostgreSQLWrappedKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeystoreKeeper opens the configured keeper, or falls back to the
// passthrough keeper when no URI is set.
func (c *Container) initKeystoreKeeper() (keyvaultService.KeystoreKeeper, error) {
	if c.config.KeystoreKeeperURI == "" {
		return keyvaultService.NewPassthroughKeeper(), nil
	}

	keeper, err := keyvaultService.OpenKeystoreKeeper(context.Background(), c.config.KeystoreKeeperURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore keeper: %w", err)
	}
	return keeper, nil
}

// initVaultUseCase creates the vault use case with all its dependencies.
func (c *Container) initVaultUseCase() (keyvaultUseCase.VaultUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for vault use case: %w", err)
	}

	userKeyRepo, err := c.UserKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key repository for vault use case: %w", err)
	}

	wrappedKeyRepo, err := c.WrappedKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get wrapped key repository for vault use case: %w", err)
	}

	keeper, err := c.KeystoreKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get keystore keeper for vault use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
	}

	useCase := keyvaultUseCase.NewKeyVaultUseCase(
		txManager,
		userKeyRepo,
		wrappedKeyRepo,
		c.HybridCipher(),
		keyvaultService.NewRecoveryCodeService(),
		c.SessionManager(),
		keeper,
		c.Logger(),
	)

	return keyvaultUseCase.NewVaultUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initRecoveryUseCase creates the recovery use case with all its dependencies.
func (c *Container) initRecoveryUseCase() (keyvaultUseCase.RecoveryUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for recovery use case: %w", err)
	}

	userKeyRepo, err := c.UserKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key repository for recovery use case: %w", err)
	}

	wrappedKeyRepo, err := c.WrappedKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get wrapped key repository for recovery use case: %w", err)
	}

	keeper, err := c.KeystoreKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get keystore keeper for recovery use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for recovery use case: %w", err)
	}

	useCase := keyvaultUseCase.NewRecoveryCoordinator(
		txManager,
		userKeyRepo,
		wrappedKeyRepo,
		c.HybridCipher(),
		keyvaultService.NewRecoveryCodeService(),
		c.SessionManager(),
		keeper,
		c.Logger(),
	)

	return keyvaultUseCase.NewRecoveryUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initVaultHandler creates the vault HTTP handler with all its dependencies.
func (c *Container) initVaultHandler() (*keyvaultHTTP.VaultHandler, error) {
	vaultUseCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for vault handler: %w", err)
	}

	recoveryUseCase, err := c.RecoveryUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get recovery use case for vault handler: %w", err)
	}

	return keyvaultHTTP.NewVaultHandler(vaultUseCase, recoveryUseCase, c.Logger()), nil
}
