package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/dmcore/internal/keyvault/domain"
	"github.com/quietwire/dmcore/internal/keyvault/service"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// fakeTxManager runs the callback directly, without a database.
type fakeTxManager struct {
	err error
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

// fakeUserKeyRepo is an in-memory UserKeyRepository.
type fakeUserKeyRepo struct {
	byUser map[uuid.UUID]*domain.UserKey
}

func newFakeUserKeyRepo() *fakeUserKeyRepo {
	return &fakeUserKeyRepo{byUser: make(map[uuid.UUID]*domain.UserKey)}
}

func (f *fakeUserKeyRepo) Create(_ context.Context, userKey *domain.UserKey) error {
	if _, ok := f.byUser[userKey.UserID]; ok {
		return domain.ErrAlreadyProvisioned
	}
	stored := *userKey
	f.byUser[userKey.UserID] = &stored
	return nil
}

func (f *fakeUserKeyRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.UserKey, error) {
	userKey, ok := f.byUser[userID]
	if !ok {
		return nil, domain.ErrNotProvisioned
	}
	copied := *userKey
	return &copied, nil
}

func (f *fakeUserKeyRepo) UpdateRecoveryCodeHash(_ context.Context, userID uuid.UUID, recoveryCodeHash string) error {
	userKey, ok := f.byUser[userID]
	if !ok {
		return domain.ErrNotProvisioned
	}
	userKey.RecoveryCodeHash = recoveryCodeHash
	return nil
}

// fakeWrappedKeyRepo is an in-memory WrappedKeyRepository.
type fakeWrappedKeyRepo struct {
	byKey map[string]*domain.WrappedKey
}

func newFakeWrappedKeyRepo() *fakeWrappedKeyRepo {
	return &fakeWrappedKeyRepo{byKey: make(map[string]*domain.WrappedKey)}
}

func wrapKey(userID uuid.UUID, method domain.WrapMethod) string {
	return fmt.Sprintf("%s/%s", userID, method)
}

func (f *fakeWrappedKeyRepo) Upsert(_ context.Context, wrappedKey *domain.WrappedKey) error {
	stored := *wrappedKey
	f.byKey[wrapKey(wrappedKey.UserID, wrappedKey.Method)] = &stored
	return nil
}

func (f *fakeWrappedKeyRepo) GetByUserAndMethod(
	_ context.Context,
	userID uuid.UUID,
	method domain.WrapMethod,
) (*domain.WrappedKey, error) {
	wrappedKey, ok := f.byKey[wrapKey(userID, method)]
	if !ok {
		return nil, domain.ErrNotProvisioned
	}
	copied := *wrappedKey
	return &copied, nil
}

type vaultFixture struct {
	vault    *KeyVaultUseCase
	recovery *RecoveryCoordinator
	sessions *service.SessionManager
	cipher   service.HybridCipher
}

func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cipher := service.NewHybridCipher()
	recoveryCode := service.NewRecoveryCodeService()
	sessions := service.NewSessionManager(time.Minute, nil)
	t.Cleanup(sessions.LockAll)
	keeper := service.NewPassthroughKeeper()
	txManager := &fakeTxManager{}
	userKeyRepo := newFakeUserKeyRepo()
	wrappedRepo := newFakeWrappedKeyRepo()

	return &vaultFixture{
		vault: NewKeyVaultUseCase(
			txManager, userKeyRepo, wrappedRepo, cipher, recoveryCode, sessions, keeper, logger,
		),
		recovery: NewRecoveryCoordinator(
			txManager, userKeyRepo, wrappedRepo, cipher, recoveryCode, sessions, keeper, logger,
		),
		sessions: sessions,
		cipher:   cipher,
	}
}

func TestKeyVaultUseCase_Provision(t *testing.T) {
	fixture := newVaultFixture(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		output, err := fixture.vault.Provision(ctx, userID, "a strong passphrase")
		require.NoError(t, err)
		require.NotNil(t, output)
		assert.Len(t, output.PublicKey, 32)
		assert.Len(t, strings.Split(output.RecoveryCode, "-"), 5)
	})

	t.Run("Error_AlreadyProvisioned", func(t *testing.T) {
		output, err := fixture.vault.Provision(ctx, userID, "a strong passphrase")
		assert.Nil(t, output)
		assert.True(t, apperrors.Is(err, domain.ErrAlreadyProvisioned))
	})

	t.Run("Error_WeakPassphrase", func(t *testing.T) {
		output, err := fixture.vault.Provision(ctx, uuid.Must(uuid.NewV7()), "short")
		assert.Nil(t, output)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestKeyVaultUseCase_Unlock(t *testing.T) {
	fixture := newVaultFixture(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	output, err := fixture.vault.Provision(ctx, userID, "a strong passphrase")
	require.NoError(t, err)

	t.Run("Success_SessionDecrypts", func(t *testing.T) {
		session, err := fixture.vault.Unlock(ctx, userID, "a strong passphrase")
		require.NoError(t, err)
		assert.False(t, session.Locked())

		plaintext := []byte("only for this user")
		envelope, err := fixture.cipher.EncryptFor(plaintext, output.PublicKey)
		require.NoError(t, err)

		var decrypted []byte
		err = session.WithPrivateKey(func(privateKey []byte) error {
			var decErr error
			decrypted, decErr = fixture.cipher.DecryptWith(envelope, privateKey)
			return decErr
		})
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("Error_WrongPassphrase", func(t *testing.T) {
		session, err := fixture.vault.Unlock(ctx, userID, "not the passphrase")
		assert.Nil(t, session)
		assert.True(t, apperrors.Is(err, domain.ErrUnlockFailed))
	})

	t.Run("Error_NotProvisioned", func(t *testing.T) {
		session, err := fixture.vault.Unlock(ctx, uuid.Must(uuid.NewV7()), "a strong passphrase")
		assert.Nil(t, session)
		assert.True(t, apperrors.Is(err, domain.ErrNotProvisioned))
	})
}

func TestKeyVaultUseCase_LockAndSession(t *testing.T) {
	fixture := newVaultFixture(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	_, err := fixture.vault.Provision(ctx, userID, "a strong passphrase")
	require.NoError(t, err)

	_, err = fixture.vault.Session(userID)
	assert.True(t, apperrors.Is(err, domain.ErrVaultLocked))

	unlocked, err := fixture.vault.Unlock(ctx, userID, "a strong passphrase")
	require.NoError(t, err)

	session, err := fixture.vault.Session(userID)
	require.NoError(t, err)
	assert.Same(t, unlocked, session)

	require.NoError(t, fixture.vault.Lock(ctx, userID))
	assert.True(t, unlocked.Locked())

	_, err = fixture.vault.Session(userID)
	assert.True(t, apperrors.Is(err, domain.ErrVaultLocked))

	// Locking again is a no-op
	assert.NoError(t, fixture.vault.Lock(ctx, userID))
}

func TestKeyVaultUseCase_PublicKey(t *testing.T) {
	fixture := newVaultFixture(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	_, err := fixture.vault.PublicKey(ctx, userID)
	assert.True(t, apperrors.Is(err, domain.ErrNotProvisioned))

	output, err := fixture.vault.Provision(ctx, userID, "a strong passphrase")
	require.NoError(t, err)

	publicKey, err := fixture.vault.PublicKey(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, output.PublicKey, publicKey)
}

func TestRecoveryCoordinator_Redeem(t *testing.T) {
	fixture := newVaultFixture(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	output, err := fixture.vault.Provision(ctx, userID, "original passphrase")
	require.NoError(t, err)

	t.Run("Error_WrongCode", func(t *testing.T) {
		err := fixture.recovery.Redeem(ctx, userID, "acorn-amber-anchor-anvil-apple", "fresh passphrase")
		assert.True(t, apperrors.Is(err, domain.ErrInvalidRecoveryCode))
	})

	t.Run("Error_UnknownUser", func(t *testing.T) {
		err := fixture.recovery.Redeem(ctx, uuid.Must(uuid.NewV7()), output.RecoveryCode, "fresh passphrase")
		assert.True(t, apperrors.Is(err, domain.ErrInvalidRecoveryCode))
	})

	t.Run("Error_FailureModesIndistinguishable", func(t *testing.T) {
		// An attacker must not be able to tell an unknown user from a
		// wrong code.
		wrongCodeErr := fixture.recovery.Redeem(ctx, userID, "acorn-amber-anchor-anvil-apple", "fresh passphrase")
		unknownUserErr := fixture.recovery.Redeem(ctx, uuid.Must(uuid.NewV7()), output.RecoveryCode, "fresh passphrase")

		require.Error(t, wrongCodeErr)
		require.Error(t, unknownUserErr)
		assert.Equal(t, wrongCodeErr.Error(), unknownUserErr.Error())
		assert.False(t, apperrors.Is(unknownUserErr, domain.ErrNotProvisioned))
	})

	t.Run("Success_UnlockWithNewPassphrase", func(t *testing.T) {
		err := fixture.recovery.Redeem(ctx, userID, output.RecoveryCode, "fresh passphrase")
		require.NoError(t, err)

		// Old passphrase no longer unlocks
		_, err = fixture.vault.Unlock(ctx, userID, "original passphrase")
		assert.True(t, apperrors.Is(err, domain.ErrUnlockFailed))

		// New passphrase unlocks the same private key: history stays readable
		session, err := fixture.vault.Unlock(ctx, userID, "fresh passphrase")
		require.NoError(t, err)

		envelope, err := fixture.cipher.EncryptFor([]byte("pre-recovery message"), output.PublicKey)
		require.NoError(t, err)

		err = session.WithPrivateKey(func(privateKey []byte) error {
			decrypted, decErr := fixture.cipher.DecryptWith(envelope, privateKey)
			if decErr != nil {
				return decErr
			}
			assert.Equal(t, []byte("pre-recovery message"), decrypted)
			return nil
		})
		assert.NoError(t, err)
	})
}

func TestRecoveryCoordinator_IssueRecoveryCode(t *testing.T) {
	fixture := newVaultFixture(t)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	output, err := fixture.vault.Provision(ctx, userID, "a strong passphrase")
	require.NoError(t, err)

	t.Run("Error_VaultLocked", func(t *testing.T) {
		_, err := fixture.recovery.IssueRecoveryCode(ctx, userID)
		assert.True(t, apperrors.Is(err, domain.ErrVaultLocked))
	})

	t.Run("Success_OldCodeInvalidated", func(t *testing.T) {
		_, err := fixture.vault.Unlock(ctx, userID, "a strong passphrase")
		require.NoError(t, err)

		newCode, err := fixture.recovery.IssueRecoveryCode(ctx, userID)
		require.NoError(t, err)
		assert.NotEqual(t, output.RecoveryCode, newCode)

		// The original code stops working
		err = fixture.recovery.Redeem(ctx, userID, output.RecoveryCode, "another passphrase")
		assert.True(t, apperrors.Is(err, domain.ErrInvalidRecoveryCode))

		// The new code redeems
		err = fixture.recovery.Redeem(ctx, userID, newCode, "another passphrase")
		assert.NoError(t, err)

		_, err = fixture.vault.Unlock(ctx, userID, "another passphrase")
		assert.NoError(t, err)
	})
}
