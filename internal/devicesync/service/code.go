package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

// codeSpace is the number of possible verification codes (6 decimal digits).
const codeSpace = 1000000

// VerificationCodeService generates 6-digit device verification codes and
// hashes them with Argon2id for at-rest storage in the challenge store.
type VerificationCodeService struct {
	hasher *pwdhash.PasswordHasher
}

// NewVerificationCodeService creates a verification code service using
// Argon2id hashing with the Moderate policy.
func NewVerificationCodeService() *VerificationCodeService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &VerificationCodeService{hasher: hasher}
}

// Generate creates a new zero-padded 6-digit code plus its Argon2id hash.
func (s *VerificationCodeService) Generate() (plainCode string, hashedCode string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate verification code")
	}
	plainCode = fmt.Sprintf("%06d", n.Int64())

	hashedCode, err = s.Hash(plainCode)
	if err != nil {
		return "", "", err
	}

	return plainCode, hashedCode, nil
}

// Hash hashes a verification code using Argon2id.
func (s *VerificationCodeService) Hash(plainCode string) (string, error) {
	hashedCode, err := s.hasher.Hash([]byte(strings.TrimSpace(plainCode)))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash verification code")
	}
	return hashedCode, nil
}

// Compare performs a constant-time comparison between a plain code and its
// stored hash.
func (s *VerificationCodeService) Compare(plainCode string, hashedCode string) bool {
	ok, err := s.hasher.Verify([]byte(strings.TrimSpace(plainCode)), hashedCode)
	if err != nil {
		return false
	}
	return ok
}
