// Package usecase implements device synchronization: letting a second device
// prove it belongs to the user before it may unlock the vault.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/devicesync/domain"
	keyvaultUseCase "github.com/quietwire/dmcore/internal/keyvault/usecase"
)

// DefaultMaxAttempts is the attempt budget per verification challenge.
const DefaultMaxAttempts = 5

// DeviceRepository interface defines device registration repository operations
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.DeviceRegistration) error
	Exists(ctx context.Context, userID uuid.UUID, fingerprint string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.DeviceRegistration, error)
}

// ChallengeStore interface defines pending challenge storage operations
type ChallengeStore interface {
	Put(ctx context.Context, challenge *domain.Challenge) error
	Get(ctx context.Context, challengeID uuid.UUID) (*domain.Challenge, error)
	IncrementAttempts(ctx context.Context, challengeID uuid.UUID) (int, error)
	Delete(ctx context.Context, challengeID uuid.UUID) error
}

// VerificationCodeService interface defines code generation operations
type VerificationCodeService interface {
	Generate() (plainCode string, hashedCode string, err error)
	Compare(plainCode string, hashedCode string) bool
}

// Notifier delivers verification codes out of band
type Notifier interface {
	Deliver(ctx context.Context, userID uuid.UUID, code string) error
}

// SyncResult reports the outcome of a sync request. Verified means the
// device unlocked the vault; otherwise ChallengeID identifies the pending
// verification the device must confirm first.
type SyncResult struct {
	Verified    bool
	ChallengeID uuid.UUID
}

// SyncUseCase defines the interface for device synchronization operations
type SyncUseCase interface {
	RequestSync(ctx context.Context, userID uuid.UUID, passphrase, fingerprint, deviceType string) (*SyncResult, error)
	ConfirmVerification(ctx context.Context, challengeID uuid.UUID, code string) error
	ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.DeviceRegistration, error)
}

// DeviceSyncCoordinator handles device synchronization business logic
type DeviceSyncCoordinator struct {
	txManager   database.TxManager
	deviceRepo  DeviceRepository
	challenges  ChallengeStore
	vault       keyvaultUseCase.VaultUseCase
	codes       VerificationCodeService
	notifier    Notifier
	maxAttempts int
	logger      *slog.Logger
}

// NewDeviceSyncCoordinator creates a new DeviceSyncCoordinator. A
// non-positive maxAttempts falls back to DefaultMaxAttempts.
func NewDeviceSyncCoordinator(
	txManager database.TxManager,
	deviceRepo DeviceRepository,
	challenges ChallengeStore,
	vault keyvaultUseCase.VaultUseCase,
	codes VerificationCodeService,
	notifier Notifier,
	maxAttempts int,
	logger *slog.Logger,
) *DeviceSyncCoordinator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &DeviceSyncCoordinator{
		txManager:   txManager,
		deviceRepo:  deviceRepo,
		challenges:  challenges,
		vault:       vault,
		codes:       codes,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// RequestSync lets a device unlock the user's vault. A known fingerprint
// unlocks directly. An unknown fingerprint still has its passphrase checked,
// but gains no session: a verification challenge goes out instead, and the
// vault's prior lock state is preserved.
func (uc *DeviceSyncCoordinator) RequestSync(
	ctx context.Context,
	userID uuid.UUID,
	passphrase, fingerprint, deviceType string,
) (*SyncResult, error) {
	if strings.TrimSpace(fingerprint) == "" || strings.TrimSpace(deviceType) == "" {
		return nil, domain.ErrInvalidDevice
	}

	known, err := uc.deviceRepo.Exists(ctx, userID, fingerprint)
	if err != nil {
		return nil, err
	}

	if known {
		if _, err := uc.vault.Unlock(ctx, userID, passphrase); err != nil {
			return nil, err
		}
		return &SyncResult{Verified: true}, nil
	}

	// Check the passphrase without leaving the vault open to an
	// unverified device. Restore the prior lock state afterwards: a
	// session another device already holds must survive the check.
	_, sessionErr := uc.vault.Session(userID)
	wasUnlocked := sessionErr == nil

	if _, err := uc.vault.Unlock(ctx, userID, passphrase); err != nil {
		return nil, err
	}
	if !wasUnlocked {
		if err := uc.vault.Lock(ctx, userID); err != nil {
			return nil, err
		}
	}

	plainCode, hashedCode, err := uc.codes.Generate()
	if err != nil {
		return nil, err
	}

	challenge := &domain.Challenge{
		ID:          uuid.Must(uuid.NewV7()),
		UserID:      userID,
		Fingerprint: fingerprint,
		DeviceType:  deviceType,
		CodeHash:    hashedCode,
	}
	if err := uc.challenges.Put(ctx, challenge); err != nil {
		return nil, err
	}

	if err := uc.notifier.Deliver(ctx, userID, plainCode); err != nil {
		return nil, err
	}

	uc.logger.Info("device verification challenge issued",
		slog.String("user_id", userID.String()),
		slog.String("challenge_id", challenge.ID.String()),
		slog.String("device_type", deviceType),
	)

	return &SyncResult{Verified: false, ChallengeID: challenge.ID}, nil
}

// ConfirmVerification checks a submitted code against its challenge and
// registers the device on success. Each challenge has a bounded attempt
// budget; exhausting it discards the challenge.
func (uc *DeviceSyncCoordinator) ConfirmVerification(ctx context.Context, challengeID uuid.UUID, code string) error {
	challenge, err := uc.challenges.Get(ctx, challengeID)
	if err != nil {
		return err
	}

	attempts, err := uc.challenges.IncrementAttempts(ctx, challengeID)
	if err != nil {
		return err
	}
	if attempts > uc.maxAttempts {
		if err := uc.challenges.Delete(ctx, challengeID); err != nil {
			uc.logger.Warn("failed to discard exhausted challenge",
				slog.String("challenge_id", challengeID.String()),
				slog.String("error", err.Error()),
			)
		}
		return domain.ErrTooManyAttempts
	}

	if !uc.codes.Compare(code, challenge.CodeHash) {
		return domain.ErrInvalidVerificationCode
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.deviceRepo.Create(ctx, &domain.DeviceRegistration{
			ID:          uuid.Must(uuid.NewV7()),
			UserID:      challenge.UserID,
			Fingerprint: challenge.Fingerprint,
			DeviceType:  challenge.DeviceType,
		})
	})
	if err != nil {
		return err
	}

	if err := uc.challenges.Delete(ctx, challengeID); err != nil {
		uc.logger.Warn("failed to delete consumed challenge",
			slog.String("challenge_id", challengeID.String()),
			slog.String("error", err.Error()),
		)
	}

	uc.logger.Info("device verified",
		slog.String("user_id", challenge.UserID.String()),
		slog.String("device_type", challenge.DeviceType),
	)
	return nil
}

// ListDevices returns the user's registered devices.
func (uc *DeviceSyncCoordinator) ListDevices(ctx context.Context, userID uuid.UUID) ([]*domain.DeviceRegistration, error) {
	return uc.deviceRepo.ListByUser(ctx, userID)
}
