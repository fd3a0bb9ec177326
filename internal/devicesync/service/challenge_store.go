// Package service provides the device verification collaborators: the Redis
// challenge store, code generation and the delivery notifier.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quietwire/dmcore/internal/devicesync/domain"

	apperrors "github.com/quietwire/dmcore/internal/errors"
)

const (
	// DefaultChallengeTTL bounds how long a verification code stays redeemable.
	DefaultChallengeTTL = 10 * time.Minute

	// Redis key prefixes
	challengePrefix = "sync:challenge:" // sync:challenge:{challengeId} - challenge JSON
	attemptsPrefix  = "sync:attempts:"  // sync:attempts:{challengeId} - attempt counter
)

// RedisChallengeStore keeps challenges in Redis with a TTL so expiry needs
// no sweeper. The attempt counter lives beside the challenge under the same
// lifetime.
type RedisChallengeStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisChallengeStore creates a new RedisChallengeStore. A non-positive
// ttl falls back to DefaultChallengeTTL.
func NewRedisChallengeStore(rdb *redis.Client, ttl time.Duration) *RedisChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &RedisChallengeStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Put stores the challenge and arms its expiry.
func (s *RedisChallengeStore) Put(ctx context.Context, challenge *domain.Challenge) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal challenge")
	}

	if err := s.rdb.Set(ctx, challengePrefix+challenge.ID.String(), data, s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "failed to store challenge")
	}
	return nil
}

// Get retrieves a pending challenge. Missing and expired challenges are
// indistinguishable.
func (s *RedisChallengeStore) Get(ctx context.Context, challengeID uuid.UUID) (*domain.Challenge, error) {
	data, err := s.rdb.Get(ctx, challengePrefix+challengeID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get challenge")
	}

	var challenge domain.Challenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal challenge")
	}
	return &challenge, nil
}

// IncrementAttempts bumps and returns the attempt counter for a challenge.
// The counter expires with the challenge.
func (s *RedisChallengeStore) IncrementAttempts(ctx context.Context, challengeID uuid.UUID) (int, error) {
	key := attemptsPrefix + challengeID.String()

	attempts, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment challenge attempts")
	}
	if attempts == 1 {
		if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
			return 0, apperrors.Wrap(err, "failed to set challenge attempts expiry")
		}
	}
	return int(attempts), nil
}

// Delete removes the challenge and its attempt counter.
func (s *RedisChallengeStore) Delete(ctx context.Context, challengeID uuid.UUID) error {
	keys := []string{challengePrefix + challengeID.String(), attemptsPrefix + challengeID.String()}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return apperrors.Wrap(err, "failed to delete challenge")
	}
	return nil
}
