package domain

import (
	"github.com/quietwire/dmcore/internal/errors"
)

// Key vault error definitions.
//
// All cryptographic failures share a deliberately generic user-facing message.
// Wrong passphrase, tampered ciphertext, and authentication-tag mismatch are
// indistinguishable to callers; the detailed cause goes to server logs only.
var (
	// ErrAlreadyProvisioned indicates the user already has an active key pair.
	// Provisioning never silently overwrites existing key material.
	//
	// HTTP Status: 409 Conflict
	ErrAlreadyProvisioned = errors.Wrap(errors.ErrConflict, "encryption already provisioned")

	// ErrNotProvisioned indicates no key material exists for the user yet.
	//
	// HTTP Status: 404 Not Found
	ErrNotProvisioned = errors.Wrap(errors.ErrNotFound, "encryption not provisioned")

	// ErrCryptoFailure is the generic ancestor for all encrypt/decrypt/unwrap
	// failures. User-facing handlers map every descendant to the same message.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrCryptoFailure = errors.Wrap(errors.ErrInvalidInput, "cryptographic operation failed")

	// ErrEncryptionFailed indicates the recipient public key was malformed or
	// unusable, or sealing failed.
	ErrEncryptionFailed = errors.Wrap(ErrCryptoFailure, "encryption failed")

	// ErrDecryptionFailed indicates the payload could not be opened. Wrong key,
	// corruption, and tag mismatch are intentionally not distinguished.
	ErrDecryptionFailed = errors.Wrap(ErrCryptoFailure, "decryption failed")

	// ErrUnwrapFailed indicates a wrapped key could not be unlocked. The text
	// stays generic so error responses never confirm passphrase correctness.
	ErrUnwrapFailed = errors.Wrap(ErrCryptoFailure, "failed to unlock")

	// ErrUnlockFailed indicates the vault could not be unlocked with the given
	// passphrase.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnlockFailed = errors.Wrap(errors.ErrInvalidInput, "failed to unlock")

	// ErrVaultLocked indicates a decrypt operation was attempted while the
	// vault session is locked. Callers must unlock and retry, never block.
	//
	// HTTP Status: 423 Locked
	ErrVaultLocked = errors.Wrap(errors.ErrLocked, "vault is locked")

	// ErrInvalidRecoveryCode indicates recovery redemption failed. Whether the
	// user or the code was wrong is intentionally not revealed.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidRecoveryCode = errors.Wrap(errors.ErrInvalidInput, "invalid recovery code")
)
