// Package service provides the cryptographic services behind the key vault:
// hybrid message encryption, passphrase-based key wrapping, vault sessions,
// and keystore-at-rest protection.
package service

import (
	"context"

	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
)

// HybridCipher defines hybrid encryption for a single recipient plus
// passphrase-based key wrapping.
type HybridCipher interface {
	// GenerateKeyPair creates a fresh X25519 key pair.
	GenerateKeyPair() (publicKey, privateKey []byte, err error)

	// EncryptFor encrypts plaintext for the holder of recipientPublicKey.
	// Every call uses a fresh symmetric key and nonce.
	EncryptFor(plaintext, recipientPublicKey []byte) (*keyvaultDomain.Envelope, error)

	// DecryptWith opens an envelope with the matching private key.
	DecryptWith(envelope *keyvaultDomain.Envelope, privateKey []byte) ([]byte, error)

	// WrapSecret seals a secret under a passphrase-derived key with a
	// per-wrap random salt and nonce.
	WrapSecret(secret []byte, passphrase string) (*keyvaultDomain.WrappedKey, error)

	// UnwrapSecret reverses WrapSecret. Wrong passphrase and tampering are
	// indistinguishable in the returned error.
	UnwrapSecret(wrapped *keyvaultDomain.WrappedKey, passphrase string) ([]byte, error)
}

// KeystoreKeeper protects wrapped key blobs at rest, typically backed by a
// gocloud.dev secrets keeper (Vault, cloud KMS, or a local base64 key).
type KeystoreKeeper interface {
	// Encrypt seals a keystore blob before it is persisted.
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)

	// Decrypt opens a keystore blob after it is loaded.
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)

	// Close releases keeper resources.
	Close() error
}
