package app

import (
	"fmt"

	devicesyncHTTP "github.com/quietwire/dmcore/internal/devicesync/http"
	devicesyncRepository "github.com/quietwire/dmcore/internal/devicesync/repository"
	devicesyncService "github.com/quietwire/dmcore/internal/devicesync/service"
	devicesyncUseCase "github.com/quietwire/dmcore/internal/devicesync/usecase"
)

// DeviceRepository returns the device registration repository instance.
func (c *Container) DeviceRepository() (devicesyncUseCase.DeviceRepository, error) {
	var err error
	c.deviceRepoInit.Do(func() {
		c.deviceRepo, err = c.initDeviceRepository()
		if err != nil {
			c.initErrors["deviceRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceRepo"]; exists {
		return nil, storedErr
	}
	return c.deviceRepo, nil
}

// ChallengeStore returns the Redis-backed verification challenge store.
func (c *Container) ChallengeStore() (devicesyncUseCase.ChallengeStore, error) {
	var err error
	c.challengeStoreInit.Do(func() {
		c.challengeStore, err = c.initChallengeStore()
		if err != nil {
			c.initErrors["challengeStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["challengeStore"]; exists {
		return nil, storedErr
	}
	return c.challengeStore, nil
}

// SyncUseCase returns the device sync use case instance.
func (c *Container) SyncUseCase() (devicesyncUseCase.SyncUseCase, error) {
	var err error
	c.syncUseCaseInit.Do(func() {
		c.syncUseCase, err = c.initSyncUseCase()
		if err != nil {
			c.initErrors["syncUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncUseCase"]; exists {
		return nil, storedErr
	}
	return c.syncUseCase, nil
}

// SyncHandler returns the device sync HTTP handler instance.
func (c *Container) SyncHandler() (*devicesyncHTTP.SyncHandler, error) {
	var err error
	c.syncHandlerInit.Do(func() {
		c.syncHandler, err = c.initSyncHandler()
		if err != nil {
			c.initErrors["syncHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncHandler"]; exists {
		return nil, storedErr
	}
	return c.syncHandler, nil
}

// initDeviceRepository creates the device registration repository instance.
func (c *Container) initDeviceRepository() (devicesyncUseCase.DeviceRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for device repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return devicesyncRepository.NewMySQLDeviceRepository(db), nil
	case "postgres":
		return devicesyncRepository.NewPostgreSQLDeviceRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initChallengeStore creates the Redis challenge store instance.
func (c *Container) initChallengeStore() (devicesyncUseCase.ChallengeStore, error) {
	rdb, err := c.Redis()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for challenge store: %w", err)
	}
	return devicesyncService.NewRedisChallengeStore(rdb, c.config.SyncChallengeTTL), nil
}

// initSyncUseCase creates the device sync use case with all its dependencies.
func (c *Container) initSyncUseCase() (devicesyncUseCase.SyncUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for sync use case: %w", err)
	}

	deviceRepo, err := c.DeviceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device repository for sync use case: %w", err)
	}

	challengeStore, err := c.ChallengeStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge store for sync use case: %w", err)
	}

	vaultUseCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for sync use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for sync use case: %w", err)
	}

	useCase := devicesyncUseCase.NewDeviceSyncCoordinator(
		txManager,
		deviceRepo,
		challengeStore,
		vaultUseCase,
		devicesyncService.NewVerificationCodeService(),
		devicesyncService.NewLogNotifier(c.Logger()),
		c.config.SyncChallengeMaxAttempts,
		c.Logger(),
	)

	return devicesyncUseCase.NewSyncUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initSyncHandler creates the device sync HTTP handler with all its dependencies.
func (c *Container) initSyncHandler() (*devicesyncHTTP.SyncHandler, error) {
	syncUseCase, err := c.SyncUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync use case for sync handler: %w", err)
	}

	return devicesyncHTTP.NewSyncHandler(syncUseCase, c.Logger()), nil
}
