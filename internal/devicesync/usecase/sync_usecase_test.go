package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/dmcore/internal/devicesync/domain"
	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
	"github.com/quietwire/dmcore/internal/keyvault/service"
	keyvaultUseCase "github.com/quietwire/dmcore/internal/keyvault/usecase"
)

// fakeTxManager runs the callback directly, without a database.
type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeDeviceRepo is an in-memory DeviceRepository.
type fakeDeviceRepo struct {
	devices []*domain.DeviceRegistration
}

func (f *fakeDeviceRepo) Create(_ context.Context, device *domain.DeviceRegistration) error {
	for _, existing := range f.devices {
		if existing.UserID == device.UserID && existing.Fingerprint == device.Fingerprint {
			return nil
		}
	}
	stored := *device
	f.devices = append(f.devices, &stored)
	return nil
}

func (f *fakeDeviceRepo) Exists(_ context.Context, userID uuid.UUID, fingerprint string) (bool, error) {
	for _, device := range f.devices {
		if device.UserID == userID && device.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDeviceRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.DeviceRegistration, error) {
	var result []*domain.DeviceRegistration
	for _, device := range f.devices {
		if device.UserID == userID {
			result = append(result, device)
		}
	}
	return result, nil
}

// fakeChallengeStore is an in-memory ChallengeStore.
type fakeChallengeStore struct {
	challenges map[uuid.UUID]*domain.Challenge
	attempts   map[uuid.UUID]int
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{
		challenges: make(map[uuid.UUID]*domain.Challenge),
		attempts:   make(map[uuid.UUID]int),
	}
}

func (f *fakeChallengeStore) Put(_ context.Context, challenge *domain.Challenge) error {
	stored := *challenge
	f.challenges[challenge.ID] = &stored
	return nil
}

func (f *fakeChallengeStore) Get(_ context.Context, challengeID uuid.UUID) (*domain.Challenge, error) {
	challenge, ok := f.challenges[challengeID]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	copied := *challenge
	return &copied, nil
}

func (f *fakeChallengeStore) IncrementAttempts(_ context.Context, challengeID uuid.UUID) (int, error) {
	f.attempts[challengeID]++
	return f.attempts[challengeID], nil
}

func (f *fakeChallengeStore) Delete(_ context.Context, challengeID uuid.UUID) error {
	delete(f.challenges, challengeID)
	delete(f.attempts, challengeID)
	return nil
}

// fakeCodeService issues a fixed code so tests can confirm with it.
type fakeCodeService struct {
	code string
}

func (f *fakeCodeService) Generate() (string, string, error) {
	return f.code, "hash:" + f.code, nil
}

func (f *fakeCodeService) Compare(plainCode, hashedCode string) bool {
	return "hash:"+plainCode == hashedCode
}

// fakeNotifier records delivered codes.
type fakeNotifier struct {
	delivered []string
	err       error
}

func (f *fakeNotifier) Deliver(_ context.Context, _ uuid.UUID, code string) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, code)
	return nil
}

// fakeVault tracks unlock and lock calls against a single passphrase.
type fakeVault struct {
	passphrase string
	unlocked   map[uuid.UUID]bool
	unlocks    int
	locks      int
}

func newFakeVault(passphrase string) *fakeVault {
	return &fakeVault{passphrase: passphrase, unlocked: make(map[uuid.UUID]bool)}
}

func (f *fakeVault) Provision(context.Context, uuid.UUID, string) (*keyvaultUseCase.ProvisionOutput, error) {
	return nil, nil
}

func (f *fakeVault) Unlock(_ context.Context, userID uuid.UUID, passphrase string) (*service.Session, error) {
	if passphrase != f.passphrase {
		return nil, keyvaultDomain.ErrUnlockFailed
	}
	f.unlocks++
	f.unlocked[userID] = true
	return nil, nil
}

func (f *fakeVault) Lock(_ context.Context, userID uuid.UUID) error {
	f.locks++
	f.unlocked[userID] = false
	return nil
}

func (f *fakeVault) Session(userID uuid.UUID) (*service.Session, error) {
	if f.unlocked[userID] {
		return nil, nil
	}
	return nil, keyvaultDomain.ErrVaultLocked
}

func (f *fakeVault) PublicKey(context.Context, uuid.UUID) ([]byte, error) {
	return nil, keyvaultDomain.ErrNotProvisioned
}

type syncFixture struct {
	coordinator *DeviceSyncCoordinator
	devices     *fakeDeviceRepo
	challenges  *fakeChallengeStore
	notifier    *fakeNotifier
	vault       *fakeVault
}

func newSyncFixture() *syncFixture {
	devices := &fakeDeviceRepo{}
	challenges := newFakeChallengeStore()
	notifier := &fakeNotifier{}
	vault := newFakeVault("correct horse battery")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	coordinator := NewDeviceSyncCoordinator(
		&fakeTxManager{}, devices, challenges, vault,
		&fakeCodeService{code: "123456"}, notifier, 3, logger,
	)
	return &syncFixture{
		coordinator: coordinator,
		devices:     devices,
		challenges:  challenges,
		notifier:    notifier,
		vault:       vault,
	}
}

func TestDeviceSyncCoordinator_RequestSync(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	t.Run("known fingerprint unlocks directly", func(t *testing.T) {
		fx := newSyncFixture()
		require.NoError(t, fx.devices.Create(ctx, &domain.DeviceRegistration{
			ID: uuid.Must(uuid.NewV7()), UserID: userID, Fingerprint: "fp-known", DeviceType: "desktop",
		}))

		result, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-known", "desktop")

		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, uuid.Nil, result.ChallengeID)
		assert.True(t, fx.vault.unlocked[userID])
		assert.Empty(t, fx.challenges.challenges)
	})

	t.Run("unknown fingerprint issues challenge and keeps vault locked", func(t *testing.T) {
		fx := newSyncFixture()

		result, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-new", "mobile")

		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.NotEqual(t, uuid.Nil, result.ChallengeID)
		assert.False(t, fx.vault.unlocked[userID], "vault must be re-locked for unverified devices")
		assert.Equal(t, []string{"123456"}, fx.notifier.delivered)

		challenge, err := fx.challenges.Get(ctx, result.ChallengeID)
		require.NoError(t, err)
		assert.Equal(t, userID, challenge.UserID)
		assert.Equal(t, "fp-new", challenge.Fingerprint)
		assert.Equal(t, "mobile", challenge.DeviceType)
	})

	t.Run("unknown fingerprint leaves an active session unlocked", func(t *testing.T) {
		fx := newSyncFixture()
		_, err := fx.vault.Unlock(ctx, userID, "correct horse battery")
		require.NoError(t, err)

		result, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-new", "mobile")

		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.True(t, fx.vault.unlocked[userID], "a sync request must not lock an active session")
		assert.Zero(t, fx.vault.locks)
	})

	t.Run("wrong passphrase never issues a challenge", func(t *testing.T) {
		fx := newSyncFixture()

		_, err := fx.coordinator.RequestSync(ctx, userID, "wrong", "fp-new", "mobile")

		assert.ErrorIs(t, err, keyvaultDomain.ErrUnlockFailed)
		assert.Empty(t, fx.challenges.challenges)
		assert.Empty(t, fx.notifier.delivered)
	})

	t.Run("rejects blank device details", func(t *testing.T) {
		fx := newSyncFixture()

		_, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "  ", "mobile")
		assert.ErrorIs(t, err, domain.ErrInvalidDevice)

		_, err = fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-new", "")
		assert.ErrorIs(t, err, domain.ErrInvalidDevice)
	})
}

func TestDeviceSyncCoordinator_ConfirmVerification(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	requestChallenge := func(t *testing.T, fx *syncFixture) uuid.UUID {
		t.Helper()
		result, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-new", "mobile")
		require.NoError(t, err)
		require.False(t, result.Verified)
		return result.ChallengeID
	}

	t.Run("correct code registers the device", func(t *testing.T) {
		fx := newSyncFixture()
		challengeID := requestChallenge(t, fx)

		require.NoError(t, fx.coordinator.ConfirmVerification(ctx, challengeID, "123456"))

		exists, err := fx.devices.Exists(ctx, userID, "fp-new")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Empty(t, fx.challenges.challenges, "consumed challenge is discarded")
	})

	t.Run("verified device unlocks on the next request", func(t *testing.T) {
		fx := newSyncFixture()
		challengeID := requestChallenge(t, fx)
		require.NoError(t, fx.coordinator.ConfirmVerification(ctx, challengeID, "123456"))

		result, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-new", "mobile")

		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.True(t, fx.vault.unlocked[userID])
	})

	t.Run("wrong code burns an attempt but keeps the challenge", func(t *testing.T) {
		fx := newSyncFixture()
		challengeID := requestChallenge(t, fx)

		err := fx.coordinator.ConfirmVerification(ctx, challengeID, "654321")

		assert.ErrorIs(t, err, domain.ErrInvalidVerificationCode)
		assert.Equal(t, 1, fx.challenges.attempts[challengeID])

		require.NoError(t, fx.coordinator.ConfirmVerification(ctx, challengeID, "123456"))
	})

	t.Run("exhausting attempts discards the challenge", func(t *testing.T) {
		fx := newSyncFixture()
		challengeID := requestChallenge(t, fx)

		for i := 0; i < 3; i++ {
			err := fx.coordinator.ConfirmVerification(ctx, challengeID, "654321")
			assert.ErrorIs(t, err, domain.ErrInvalidVerificationCode)
		}

		err := fx.coordinator.ConfirmVerification(ctx, challengeID, "123456")
		assert.ErrorIs(t, err, domain.ErrTooManyAttempts)

		err = fx.coordinator.ConfirmVerification(ctx, challengeID, "123456")
		assert.ErrorIs(t, err, domain.ErrChallengeNotFound, "discarded challenge must be re-requested")
	})

	t.Run("unknown challenge", func(t *testing.T) {
		fx := newSyncFixture()

		err := fx.coordinator.ConfirmVerification(ctx, uuid.Must(uuid.NewV7()), "123456")

		assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
	})
}

func TestDeviceSyncCoordinator_ListDevices(t *testing.T) {
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV7())

	fx := newSyncFixture()
	challenge, err := fx.coordinator.RequestSync(ctx, userID, "correct horse battery", "fp-new", "mobile")
	require.NoError(t, err)
	require.NoError(t, fx.coordinator.ConfirmVerification(ctx, challenge.ChallengeID, "123456"))

	devices, err := fx.coordinator.ListDevices(ctx, userID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "fp-new", devices[0].Fingerprint)

	devices, err = fx.coordinator.ListDevices(ctx, uuid.Must(uuid.NewV7()))
	require.NoError(t, err)
	assert.Empty(t, devices)
}
