package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// recoveryWordCount is the number of wordlist words in a recovery code.
const recoveryWordCount = 5

// RecoveryCodeService generates human-typeable recovery codes and hashes them
// with Argon2id for at-rest storage. Only the hash is ever persisted; the
// plain code is shown to the user exactly once at issue time.
type RecoveryCodeService struct {
	hasher *pwdhash.PasswordHasher
}

// NewRecoveryCodeService creates a recovery code service using Argon2id
// hashing with the Moderate policy.
func NewRecoveryCodeService() *RecoveryCodeService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &RecoveryCodeService{hasher: hasher}
}

// Generate creates a new recovery code of five wordlist words joined with
// hyphens, plus its Argon2id hash.
func (s *RecoveryCodeService) Generate() (plainCode string, hashedCode string, err error) {
	words := make([]string, recoveryWordCount)
	max := big.NewInt(int64(len(recoveryWords)))
	for i := range words {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", "", apperrors.Wrap(err, "failed to generate recovery code")
		}
		words[i] = recoveryWords[n.Int64()]
	}
	plainCode = strings.Join(words, "-")

	hashedCode, err = s.Hash(plainCode)
	if err != nil {
		return "", "", err
	}

	return plainCode, hashedCode, nil
}

// Hash hashes a recovery code using Argon2id. The code is normalized first so
// users can redeem with arbitrary case and surrounding whitespace.
func (s *RecoveryCodeService) Hash(plainCode string) (string, error) {
	hashedCode, err := s.hasher.Hash([]byte(Normalize(plainCode)))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash recovery code")
	}
	return hashedCode, nil
}

// Compare performs a constant-time comparison between a plain recovery code
// and its stored hash.
func (s *RecoveryCodeService) Compare(plainCode string, hashedCode string) bool {
	ok, err := s.hasher.Verify([]byte(Normalize(plainCode)), hashedCode)
	if err != nil {
		return false
	}
	return ok
}

// Normalize lowercases a recovery code and strips surrounding whitespace.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
