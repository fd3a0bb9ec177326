package domain

import (
	"time"

	"github.com/google/uuid"
)

// WrapMethod identifies how a private key was wrapped for storage.
type WrapMethod string

const (
	// WrapPassword is the regular passphrase-derived wrap.
	WrapPassword WrapMethod = "password"

	// WrapRecovery is the recovery-code-derived wrap kept for password resets.
	WrapRecovery WrapMethod = "recovery"
)

// UserKey is the per-user key material anchor: the shareable public key and
// the argon2id hash of the active recovery code. A user has at most one row.
type UserKey struct {
	UserID           uuid.UUID
	PublicKey        []byte // X25519 public key, shareable
	RecoveryCodeHash string // argon2id hash of the human recovery code
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WrappedKey is a private key stored only in encrypted form. The ciphertext is
// unusable without the exact salt, nonce, and derivation parameters recorded
// alongside it; losing any of them is equivalent to losing the key.
type WrappedKey struct {
	ID         uuid.UUID // Unique identifier (UUIDv7)
	UserID     uuid.UUID
	Method     WrapMethod
	Ciphertext []byte // private key sealed with the derived key
	Nonce      []byte // AEAD nonce for the seal
	Salt       []byte // per-wrap random KDF salt
	KDFTime    uint32 // argon2id time parameter
	KDFMemory  uint32 // argon2id memory parameter in KiB
	KDFThreads uint8  // argon2id parallelism parameter
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Envelope is a hybrid-encrypted message payload: the content sealed with a
// fresh symmetric key, and that key wrapped for exactly one recipient.
// Compromise of one envelope's symmetric key exposes no other envelope.
type Envelope struct {
	Ciphertext         []byte // message sealed with the per-message key
	Nonce              []byte // AEAD nonce for the message seal
	WrappedKey         []byte // per-message key sealed with the derived KEK
	KeyNonce           []byte // AEAD nonce for the key wrap
	EphemeralPublicKey []byte // X25519 ephemeral public key for ECDH
	Algorithm          string // algorithm tag, see AlgorithmX25519ChaCha20
}

// AlgorithmX25519ChaCha20 tags envelopes produced by the current hybrid
// scheme: X25519 ECDH + HKDF-SHA256 key wrap, ChaCha20-Poly1305 payload seal.
const AlgorithmX25519ChaCha20 = "x25519-chacha20-poly1305"
