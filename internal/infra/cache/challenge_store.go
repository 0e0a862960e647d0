package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aegis/internal/domain/entity"
	"aegis/internal/domain/repository"
	"aegis/internal/errors"

	"github.com/redis/go-redis/v9"
)

// challengeStore implements repository.ChallengeStore on Redis. Challenges
// live under biometric_challenge_{tenantId}_{state} and expire via TTL.
type challengeStore struct {
	client *redis.Client
}

// NewChallengeStore is the constructor for challengeStore.
func NewChallengeStore(client *redis.Client) repository.ChallengeStore {
	return &challengeStore{
		client: client,
	}
}

func challengeKey(tenantID, state string) string {
	return fmt.Sprintf("biometric_challenge_%s_%s", tenantID, state)
}

// Save stores the challenge under its state with the given TTL.
func (s *challengeStore) Save(ctx context.Context, challenge *entity.BiometricChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return errors.Wrap(err, "failed to marshal challenge")
	}

	key := challengeKey(challenge.TenantID, challenge.State)
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store challenge")
	}

	return nil
}

// Find retrieves a challenge by tenant and state.
func (s *challengeStore) Find(ctx context.Context, tenantID, state string) (*entity.BiometricChallenge, error) {
	payload, err := s.client.Get(ctx, challengeKey(tenantID, state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrChallengeNotFound
		}

		return nil, errors.Wrap(err, "failed to load challenge")
	}

	var challenge entity.BiometricChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal challenge")
	}

	return &challenge, nil
}

// Delete removes a challenge. Deleting an absent key is not an error.
func (s *challengeStore) Delete(ctx context.Context, tenantID, state string) error {
	if err := s.client.Del(ctx, challengeKey(tenantID, state)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete challenge")
	}

	return nil
}
