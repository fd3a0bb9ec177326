package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	// Register keeper provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// OpenKeystoreKeeper opens a secrets.Keeper for the configured provider URI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
// The returned *secrets.Keeper implements KeystoreKeeper.
func OpenKeystoreKeeper(ctx context.Context, keyURI string) (KeystoreKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore keeper: %w", err)
	}
	return keeper, nil
}

// PassthroughKeeper is the KeystoreKeeper used when no keeper URI is
// configured. Wrapped keys are already ciphertext under a passphrase-derived
// key, so storing them without an extra at-rest layer is acceptable for
// development setups.
type PassthroughKeeper struct{}

// NewPassthroughKeeper creates a keeper that stores blobs unchanged.
func NewPassthroughKeeper() *PassthroughKeeper {
	return &PassthroughKeeper{}
}

// Encrypt returns the plaintext unchanged.
func (p *PassthroughKeeper) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

// Decrypt returns the ciphertext unchanged.
func (p *PassthroughKeeper) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

// Close is a no-op.
func (p *PassthroughKeeper) Close() error {
	return nil
}
