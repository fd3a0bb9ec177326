package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/dmcore/internal/keyvault/domain"
	"github.com/quietwire/dmcore/internal/testutil"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

func TestPostgreSQLUserKeyRepository_Create(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLUserKeyRepository(db)
	ctx := context.Background()

	userKey := &domain.UserKey{
		UserID:           uuid.Must(uuid.NewV7()),
		PublicKey:        []byte{1, 2, 3, 4},
		RecoveryCodeHash: "argon2id-hash",
	}

	err := repo.Create(ctx, userKey)
	assert.NoError(t, err)

	created, err := repo.GetByUserID(ctx, userKey.UserID)
	require.NoError(t, err)
	assert.Equal(t, userKey.UserID, created.UserID)
	assert.Equal(t, userKey.PublicKey, created.PublicKey)
	assert.Equal(t, userKey.RecoveryCodeHash, created.RecoveryCodeHash)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
}

func TestPostgreSQLUserKeyRepository_Create_Duplicate(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLUserKeyRepository(db)
	ctx := context.Background()

	userKey := &domain.UserKey{
		UserID:           uuid.Must(uuid.NewV7()),
		PublicKey:        []byte{1, 2, 3, 4},
		RecoveryCodeHash: "argon2id-hash",
	}

	err := repo.Create(ctx, userKey)
	require.NoError(t, err)

	err = repo.Create(ctx, userKey)
	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, domain.ErrAlreadyProvisioned))
}

func TestPostgreSQLUserKeyRepository_GetByUserID_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLUserKeyRepository(db)
	ctx := context.Background()

	userKey, err := repo.GetByUserID(ctx, uuid.Must(uuid.NewV7()))
	assert.Error(t, err)
	assert.Nil(t, userKey)
	assert.True(t, apperrors.Is(err, domain.ErrNotProvisioned))
}

func TestPostgreSQLUserKeyRepository_UpdateRecoveryCodeHash(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLUserKeyRepository(db)
	ctx := context.Background()

	userKey := &domain.UserKey{
		UserID:           uuid.Must(uuid.NewV7()),
		PublicKey:        []byte{1, 2, 3, 4},
		RecoveryCodeHash: "old-hash",
	}
	require.NoError(t, repo.Create(ctx, userKey))

	err := repo.UpdateRecoveryCodeHash(ctx, userKey.UserID, "new-hash")
	assert.NoError(t, err)

	updated, err := repo.GetByUserID(ctx, userKey.UserID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.RecoveryCodeHash)
}

func TestPostgreSQLUserKeyRepository_UpdateRecoveryCodeHash_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLUserKeyRepository(db)
	ctx := context.Background()

	err := repo.UpdateRecoveryCodeHash(ctx, uuid.Must(uuid.NewV7()), "new-hash")
	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, domain.ErrNotProvisioned))
}
