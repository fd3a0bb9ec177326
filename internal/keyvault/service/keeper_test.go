package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// localKeeperURI generates a base64key:// URI for testing.
func localKeeperURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func TestOpenKeystoreKeeper(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_LocalKey", func(t *testing.T) {
		keeper, err := OpenKeystoreKeeper(ctx, localKeeperURI(t))
		require.NoError(t, err)
		require.NotNil(t, keeper)
		defer func() {
			assert.NoError(t, keeper.Close())
		}()

		plaintext := []byte("wrapped key blob")
		ciphertext, err := keeper.Encrypt(ctx, plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, err := keeper.Decrypt(ctx, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("Error_InvalidURI", func(t *testing.T) {
		keeper, err := OpenKeystoreKeeper(ctx, "invalid://uri")
		assert.Error(t, err)
		assert.Nil(t, keeper)
		assert.Contains(t, err.Error(), "failed to open keystore keeper")
	})

	t.Run("Error_DecryptWithDifferentKey", func(t *testing.T) {
		keeper1, err := OpenKeystoreKeeper(ctx, localKeeperURI(t))
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, keeper1.Close())
		}()
		keeper2, err := OpenKeystoreKeeper(ctx, localKeeperURI(t))
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, keeper2.Close())
		}()

		ciphertext, err := keeper1.Encrypt(ctx, []byte("blob"))
		require.NoError(t, err)

		decrypted, err := keeper2.Decrypt(ctx, ciphertext)
		assert.Error(t, err)
		assert.Nil(t, decrypted)
	})
}

func TestPassthroughKeeper(t *testing.T) {
	ctx := context.Background()
	keeper := NewPassthroughKeeper()

	plaintext := []byte("wrapped key blob")

	ciphertext, err := keeper.Encrypt(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, ciphertext)

	decrypted, err := keeper.Decrypt(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	assert.NoError(t, keeper.Close())
}
