package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/database"
	"github.com/quietwire/dmcore/internal/keyvault/domain"
	"github.com/quietwire/dmcore/internal/keyvault/service"
)

// RecoveryUseCase defines the interface for recovery code operations
type RecoveryUseCase interface {
	IssueRecoveryCode(ctx context.Context, userID uuid.UUID) (string, error)
	Redeem(ctx context.Context, userID uuid.UUID, code string, newPassphrase string) error
}

// RecoveryCoordinator handles recovery code issue and redemption
type RecoveryCoordinator struct {
	txManager    database.TxManager
	userKeyRepo  UserKeyRepository
	wrappedRepo  WrappedKeyRepository
	cipher       service.HybridCipher
	recoveryCode RecoveryCodeService
	sessions     *service.SessionManager
	keeper       service.KeystoreKeeper
	logger       *slog.Logger
}

// NewRecoveryCoordinator creates a new RecoveryCoordinator
func NewRecoveryCoordinator(
	txManager database.TxManager,
	userKeyRepo UserKeyRepository,
	wrappedRepo WrappedKeyRepository,
	cipher service.HybridCipher,
	recoveryCode RecoveryCodeService,
	sessions *service.SessionManager,
	keeper service.KeystoreKeeper,
	logger *slog.Logger,
) *RecoveryCoordinator {
	return &RecoveryCoordinator{
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

// IssueRecoveryCode replaces the user's recovery package with a fresh one and
// returns the new plain code. The previous code stops working immediately.
// Requires an unlocked vault session, since the private key must be re-wrapped
// under the new code.
func (uc *RecoveryCoordinator) IssueRecoveryCode(ctx context.Context, userID uuid.UUID) (string, error) {
	session, ok := uc.sessions.Get(userID)
	if !ok {
		return "", domain.ErrVaultLocked
	}

	if _, err := uc.userKeyRepo.GetByUserID(ctx, userID); err != nil {
		return "", err
	}

	plainCode, hashedCode, err := uc.recoveryCode.Generate()
	if err != nil {
		return "", err
	}

	var recoveryWrap *domain.WrappedKey
	err = session.WithPrivateKey(func(privateKey []byte) error {
		wrapped, err := uc.cipher.WrapSecret(privateKey, service.Normalize(plainCode))
		if err != nil {
			return err
		}
		recoveryWrap = wrapped
		return nil
	})
	if err != nil {
		return "", err
	}
	recoveryWrap.UserID = userID
	recoveryWrap.Method = domain.WrapRecovery

	sealed, err := uc.keeper.Encrypt(ctx, recoveryWrap.Ciphertext)
	if err != nil {
		return "", err
	}
	recoveryWrap.Ciphertext = sealed

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.userKeyRepo.UpdateRecoveryCodeHash(ctx, userID, hashedCode); err != nil {
			return err
		}
		return uc.wrappedRepo.Upsert(ctx, recoveryWrap)
	})
	if err != nil {
		return "", err
	}

	uc.logger.Info("recovery code reissued", slog.String("user_id", userID.String()))
	return plainCode, nil
}

// Redeem exchanges a valid recovery code for a new passphrase wrap. The
// private key bytes never change, so previously encrypted history stays
// readable. Every failure path returns the same ErrInvalidRecoveryCode.
func (uc *RecoveryCoordinator) Redeem(
	ctx context.Context,
	userID uuid.UUID,
	code string,
	newPassphrase string,
) error {
	if err := validatePassphrase(newPassphrase); err != nil {
		return err
	}

	// An unknown user and a wrong code must be indistinguishable to the
	// caller; the real cause only goes to the log.
	userKey, err := uc.userKeyRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotProvisioned) {
			uc.logger.Warn("recovery redeem for unknown user", slog.String("user_id", userID.String()))
			return domain.ErrInvalidRecoveryCode
		}
		return err
	}

	if !uc.recoveryCode.Compare(code, userKey.RecoveryCodeHash) {
		uc.logger.Warn("recovery code mismatch", slog.String("user_id", userID.String()))
		return domain.ErrInvalidRecoveryCode
	}

	wrapped, err := uc.wrappedRepo.GetByUserAndMethod(ctx, userID, domain.WrapRecovery)
	if err != nil {
		if errors.Is(err, domain.ErrNotProvisioned) {
			uc.logger.Warn("recovery redeem without recovery wrap", slog.String("user_id", userID.String()))
			return domain.ErrInvalidRecoveryCode
		}
		return err
	}

	opened, err := uc.keeper.Decrypt(ctx, wrapped.Ciphertext)
	if err != nil {
		return err
	}
	wrapped.Ciphertext = opened

	privateKey, err := uc.cipher.UnwrapSecret(wrapped, service.Normalize(code))
	if err != nil {
		uc.logger.Warn("recovery unwrap failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return domain.ErrInvalidRecoveryCode
	}
	defer domain.Zero(privateKey)

	passwordWrap, err := uc.cipher.WrapSecret(privateKey, newPassphrase)
	if err != nil {
		return err
	}
	passwordWrap.UserID = userID
	passwordWrap.Method = domain.WrapPassword

	sealed, err := uc.keeper.Encrypt(ctx, passwordWrap.Ciphertext)
	if err != nil {
		return err
	}
	passwordWrap.Ciphertext = sealed

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.wrappedRepo.Upsert(ctx, passwordWrap)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("recovery code redeemed", slog.String("user_id", userID.String()))
	return nil
}
