package service

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	keyvaultDomain "github.com/quietwire/dmcore/internal/keyvault/domain"
)

// Argon2id parameters for passphrase-based key wrapping. Recorded on every
// WrappedKey row so old wraps stay unwrappable if the defaults ever change.
const (
	kdfTime    uint32 = 3
	kdfMemory  uint32 = 64 * 1024 // KiB
	kdfThreads uint8  = 4
	kdfSaltLen        = 16
	keyLen            = 32
)

// hkdfInfo domain-separates the ECDH-derived key-encryption key.
var hkdfInfo = []byte("dmcore/v1/envelope-key-wrap")

// XChaChaHybridCipher implements HybridCipher with X25519 key agreement and
// ChaCha20-Poly1305 authenticated encryption.
//
// Encryption path: a fresh 32-byte message key seals the plaintext; an
// ephemeral X25519 key agrees a shared secret with the recipient's public
// key; HKDF-SHA256 turns the shared secret into a key-encryption key that
// seals only the small message key. Large payloads never touch the
// asymmetric primitive.
//
// Thread safety: the cipher is stateless and safe for concurrent use.
type XChaChaHybridCipher struct{}

// NewHybridCipher creates a new XChaChaHybridCipher instance.
func NewHybridCipher() *XChaChaHybridCipher {
	return &XChaChaHybridCipher{}
}

// GenerateKeyPair creates a fresh X25519 key pair from crypto/rand.
func (h *XChaChaHybridCipher) GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	privateKey = make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(privateKey); err != nil {
		return nil, nil, keyvaultDomain.ErrEncryptionFailed
	}

	publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		keyvaultDomain.Zero(privateKey)
		return nil, nil, keyvaultDomain.ErrEncryptionFailed
	}

	return publicKey, privateKey, nil
}

// EncryptFor encrypts plaintext for the holder of recipientPublicKey.
//
// Each envelope carries a unique symmetric key and nonce, so compromising one
// message's key exposes nothing about any other message.
func (h *XChaChaHybridCipher) EncryptFor(
	plaintext, recipientPublicKey []byte,
) (*keyvaultDomain.Envelope, error) {
	if len(recipientPublicKey) != curve25519.PointSize {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}

	// Fresh per-message symmetric key
	messageKey := make([]byte, keyLen)
	if _, err := rand.Read(messageKey); err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	defer keyvaultDomain.Zero(messageKey)

	// Seal the payload
	payloadAEAD, err := chacha20poly1305.New(messageKey)
	if err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	nonce := make([]byte, payloadAEAD.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	ciphertext := payloadAEAD.Seal(nil, nonce, plaintext, nil)

	// Ephemeral ECDH against the recipient key
	ephemeralPrivate := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(ephemeralPrivate); err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	defer keyvaultDomain.Zero(ephemeralPrivate)

	ephemeralPublic, err := curve25519.X25519(ephemeralPrivate, curve25519.Basepoint)
	if err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}

	kek, err := deriveKEK(ephemeralPrivate, recipientPublicKey)
	if err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	defer keyvaultDomain.Zero(kek)

	// Wrap only the small message key asymmetrically
	wrapAEAD, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	keyNonce := make([]byte, wrapAEAD.NonceSize())
	if _, err := rand.Read(keyNonce); err != nil {
		return nil, keyvaultDomain.ErrEncryptionFailed
	}
	wrappedKey := wrapAEAD.Seal(nil, keyNonce, messageKey, nil)

	return &keyvaultDomain.Envelope{
		Ciphertext:         ciphertext,
		Nonce:              nonce,
		WrappedKey:         wrappedKey,
		KeyNonce:           keyNonce,
		EphemeralPublicKey: ephemeralPublic,
		Algorithm:          keyvaultDomain.AlgorithmX25519ChaCha20,
	}, nil
}

// DecryptWith opens an envelope with the matching private key.
//
// Wrong key, corrupted payload, and authentication-tag mismatch all return
// the same ErrDecryptionFailed to avoid building a padding/tag oracle.
func (h *XChaChaHybridCipher) DecryptWith(
	envelope *keyvaultDomain.Envelope,
	privateKey []byte,
) ([]byte, error) {
	if envelope == nil || len(privateKey) != curve25519.ScalarSize {
		return nil, keyvaultDomain.ErrDecryptionFailed
	}

	kek, err := deriveKEK(privateKey, envelope.EphemeralPublicKey)
	if err != nil {
		return nil, keyvaultDomain.ErrDecryptionFailed
	}
	defer keyvaultDomain.Zero(kek)

	wrapAEAD, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, keyvaultDomain.ErrDecryptionFailed
	}
	messageKey, err := wrapAEAD.Open(nil, envelope.KeyNonce, envelope.WrappedKey, nil)
	if err != nil {
		return nil, keyvaultDomain.ErrDecryptionFailed
	}
	defer keyvaultDomain.Zero(messageKey)

	payloadAEAD, err := chacha20poly1305.New(messageKey)
	if err != nil {
		return nil, keyvaultDomain.ErrDecryptionFailed
	}
	plaintext, err := payloadAEAD.Open(nil, envelope.Nonce, envelope.Ciphertext, nil)
	if err != nil {
		return nil, keyvaultDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}

// WrapSecret seals a secret under an argon2id-derived key.
//
// The salt is random per wrap and the derivation parameters are recorded on
// the result; a WrappedKey without its exact salt, nonce, and parameters is
// unrecoverable.
func (h *XChaChaHybridCipher) WrapSecret(
	secret []byte,
	passphrase string,
) (*keyvaultDomain.WrappedKey, error) {
	salt := make([]byte, kdfSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, keyvaultDomain.ErrCryptoFailure
	}

	derived := argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, keyLen)
	defer keyvaultDomain.Zero(derived)

	aead, err := chacha20poly1305.New(derived)
	if err != nil {
		return nil, keyvaultDomain.ErrCryptoFailure
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, keyvaultDomain.ErrCryptoFailure
	}
	ciphertext := aead.Seal(nil, nonce, secret, nil)

	now := time.Now().UTC()
	return &keyvaultDomain.WrappedKey{
		ID:         uuid.Must(uuid.NewV7()),
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Salt:       salt,
		KDFTime:    kdfTime,
		KDFMemory:  kdfMemory,
		KDFThreads: kdfThreads,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// UnwrapSecret reverses WrapSecret using the parameters stored on the wrap.
// The error stays generic so callers learn nothing about passphrase correctness.
func (h *XChaChaHybridCipher) UnwrapSecret(
	wrapped *keyvaultDomain.WrappedKey,
	passphrase string,
) ([]byte, error) {
	if wrapped == nil {
		return nil, keyvaultDomain.ErrUnwrapFailed
	}

	derived := argon2.IDKey(
		[]byte(passphrase),
		wrapped.Salt,
		wrapped.KDFTime,
		wrapped.KDFMemory,
		wrapped.KDFThreads,
		keyLen,
	)
	defer keyvaultDomain.Zero(derived)

	aead, err := chacha20poly1305.New(derived)
	if err != nil {
		return nil, keyvaultDomain.ErrUnwrapFailed
	}

	secret, err := aead.Open(nil, wrapped.Nonce, wrapped.Ciphertext, nil)
	if err != nil {
		return nil, keyvaultDomain.ErrUnwrapFailed
	}

	return secret, nil
}

// deriveKEK runs X25519 key agreement and expands the shared secret into a
// 32-byte key-encryption key with HKDF-SHA256.
func deriveKEK(privateKey, publicKey []byte) ([]byte, error) {
	shared, err := curve25519.X25519(privateKey, publicKey)
	if err != nil {
		return nil, err
	}
	defer keyvaultDomain.Zero(shared)

	kek := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), kek); err != nil {
		return nil, err
	}

	return kek, nil
}
