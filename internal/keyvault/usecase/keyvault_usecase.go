// Package usecase implements the key vault business logic: provisioning user
// key pairs, unlocking and locking vault sessions, and recovery code flows.
package usecase

import (
	"context"
	"log/slog"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/keyvault/domain"
	"github.com/quietwire/dmcore/internal/keyvault/service"

	apperrors "github.com/quietwire/dmcore/internal/errors"
	appValidation "github.com/quietwire/dmcore/internal/validation"
)

// UserKeyRepository interface defines user key repository operations
type UserKeyRepository interface {
	Create(ctx context.Context, userKey *domain.UserKey) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserKey, error)
	UpdateRecoveryCodeHash(ctx context.Context, userID uuid.UUID, recoveryCodeHash string) error
}

// WrappedKeyRepository interface defines wrapped key repository operations
type WrappedKeyRepository interface {
	Upsert(ctx context.Context, wrappedKey *domain.WrappedKey) error
	GetByUserAndMethod(ctx context.Context, userID uuid.UUID, method domain.WrapMethod) (*domain.WrappedKey, error)
}

// RecoveryCodeService interface defines recovery code generation and hashing
type RecoveryCodeService interface {
	Generate() (plainCode string, hashedCode string, err error)
	Hash(plainCode string) (string, error)
	Compare(plainCode string, hashedCode string) bool
}

// ProvisionOutput is returned once at provisioning time. The recovery code
// is never shown again.
type ProvisionOutput struct {
	PublicKey    []byte
	RecoveryCode string
}

// VaultUseCase defines the interface for key vault operations
type VaultUseCase interface {
	Provision(ctx context.Context, userID uuid.UUID, passphrase string) (*ProvisionOutput, error)
	Unlock(ctx context.Context, userID uuid.UUID, passphrase string) (*service.Session, error)
	Lock(ctx context.Context, userID uuid.UUID) error
	Session(userID uuid.UUID) (*service.Session, error)
	PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

// KeyVaultUseCase handles key vault business logic
type KeyVaultUseCase struct {
	txManager    database.TxManager
	userKeyRepo  UserKeyRepository
	wrappedRepo  WrappedKeyRepository
	cipher       service.HybridCipher
	recoveryCode RecoveryCodeService
	sessions     *service.SessionManager
	keeper       service.KeystoreKeeper
	logger       *slog.Logger
}

// NewKeyVaultUseCase creates a new KeyVaultUseCase
func NewKeyVaultUseCase(
	txManager database.TxManager,
	userKeyRepo UserKeyRepository,
	wrappedRepo WrappedKeyRepository,
	cipher service.HybridCipher,
	recoveryCode RecoveryCodeService,
	sessions *service.SessionManager,
	keeper service.KeystoreKeeper,
	logger *slog.Logger,
) *KeyVaultUseCase {
	return &KeyVaultUseCase{
		txManager:    txManager,
		userKeyRepo:  userKeyRepo,
		wrappedRepo:  wrappedRepo,
		cipher:       cipher,
		recoveryCode: recoveryCode,
		sessions:     sessions,
		keeper:       keeper,
		logger:       logger,
	}
}

// validatePassphrase enforces minimum passphrase quality for wraps.
func validatePassphrase(passphrase string) error {
	err := validation.Validate(passphrase,
		validation.Required.Error("passphrase is required"),
		validation.Length(8, 128).Error("passphrase must be between 8 and 128 characters"),
	)
	return appValidation.WrapValidationError(err)
}

// Provision generates a fresh key pair for the user, wraps the private key
// under the passphrase and under a newly issued recovery code, and persists
// everything in one transaction. The plain recovery code is returned exactly
// once. Fails with ErrAlreadyProvisioned when key material already exists.
func (uc *KeyVaultUseCase) Provision(
	ctx context.Context,
	userID uuid.UUID,
	passphrase string,
) (*ProvisionOutput, error) {
	if err := validatePassphrase(passphrase); err != nil {
		return nil, err
	}

	if _, err := uc.userKeyRepo.GetByUserID(ctx, userID); err == nil {
		return nil, domain.ErrAlreadyProvisioned
	} else if !apperrors.Is(err, domain.ErrNotProvisioned) {
		return nil, err
	}

	publicKey, privateKey, err := uc.cipher.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer domain.Zero(privateKey)

	plainCode, hashedCode, err := uc.recoveryCode.Generate()
	if err != nil {
		return nil, err
	}

	passwordWrap, err := uc.wrapPrivateKey(ctx, userID, privateKey, passphrase, domain.WrapPassword)
	if err != nil {
		return nil, err
	}
	recoveryWrap, err := uc.wrapPrivateKey(ctx, userID, privateKey, service.Normalize(plainCode), domain.WrapRecovery)
	if err != nil {
		return nil, err
	}

	userKey := &domain.UserKey{
		UserID:           userID,
		PublicKey:        publicKey,
		RecoveryCodeHash: hashedCode,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.userKeyRepo.Create(ctx, userKey); err != nil {
			return err
		}
		if err := uc.wrappedRepo.Upsert(ctx, passwordWrap); err != nil {
			return err
		}
		return uc.wrappedRepo.Upsert(ctx, recoveryWrap)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("vault provisioned", slog.String("user_id", userID.String()))

	return &ProvisionOutput{
		PublicKey:    publicKey,
		RecoveryCode: plainCode,
	}, nil
}

// Unlock unwraps the user's private key with the passphrase and installs it
// into the user's vault session. Unlock failures stay generic.
func (uc *KeyVaultUseCase) Unlock(
	ctx context.Context,
	userID uuid.UUID,
	passphrase string,
) (*service.Session, error) {
	privateKey, err := uc.unwrapPrivateKey(ctx, userID, passphrase, domain.WrapPassword)
	if err != nil {
		if apperrors.Is(err, domain.ErrNotProvisioned) {
			return nil, err
		}
		uc.logger.Warn("vault unlock failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrUnlockFailed
	}

	session := uc.sessions.Unlock(userID, privateKey)
	uc.logger.Info("vault unlocked", slog.String("user_id", userID.String()))
	return session, nil
}

// Lock locks the user's vault session. Locking a user with no session or an
// already-locked session is a no-op.
func (uc *KeyVaultUseCase) Lock(_ context.Context, userID uuid.UUID) error {
	uc.sessions.Lock(userID)
	return nil
}

// Session returns the user's current vault session. ErrVaultLocked when the
// user never unlocked or the session is locked.
func (uc *KeyVaultUseCase) Session(userID uuid.UUID) (*service.Session, error) {
	session, ok := uc.sessions.Get(userID)
	if !ok || session.Locked() {
		return nil, domain.ErrVaultLocked
	}
	return session, nil
}

// PublicKey returns the user's public key for envelope encryption.
func (uc *KeyVaultUseCase) PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	userKey, err := uc.userKeyRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userKey.PublicKey, nil
}

// wrapPrivateKey wraps the private key under the given secret and seals the
// resulting ciphertext with the keystore keeper before persistence.
func (uc *KeyVaultUseCase) wrapPrivateKey(
	ctx context.Context,
	userID uuid.UUID,
	privateKey []byte,
	secret string,
	method domain.WrapMethod,
) (*domain.WrappedKey, error) {
	wrapped, err := uc.cipher.WrapSecret(privateKey, secret)
	if err != nil {
		return nil, err
	}
	wrapped.UserID = userID
	wrapped.Method = method

	sealed, err := uc.keeper.Encrypt(ctx, wrapped.Ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to seal wrapped key with keeper")
	}
	wrapped.Ciphertext = sealed

	return wrapped, nil
}

// unwrapPrivateKey loads a wrap, opens the keeper layer, and unwraps the
// private key with the given secret.
func (uc *KeyVaultUseCase) unwrapPrivateKey(
	ctx context.Context,
	userID uuid.UUID,
	secret string,
	method domain.WrapMethod,
) ([]byte, error) {
	wrapped, err := uc.wrappedRepo.GetByUserAndMethod(ctx, userID, method)
	if err != nil {
		return nil, err
	}

	opened, err := uc.keeper.Decrypt(ctx, wrapped.Ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open wrapped key with keeper")
	}
	wrapped.Ciphertext = opened

	return uc.cipher.UnwrapSecret(wrapped, secret)
}
