package cache

import (
	"context"
	"testing"
	"time"

	"aegis/internal/domain/entity"
	"aegis/internal/domain/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return mr, client
}

func TestChallengeStore_SaveAndFind(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := &entity.BiometricChallenge{
		State:     "state-abc",
		Challenge: "Y2hhbGxlbmdl",
		TenantID:  "tenant-1",
		ClientID:  "client-1",
		UserID:    "user-1",
		Device: entity.DeviceMetadata{
			DeviceID: "device-1",
		},
		ExpiresAt: time.Now().Add(2 * time.Minute).Unix(),
	}

	require.NoError(t, store.Save(ctx, challenge, 2*time.Minute))

	found, err := store.Find(ctx, "tenant-1", "state-abc")
	require.NoError(t, err)
	assert.Equal(t, challenge.Challenge, found.Challenge)
	assert.Equal(t, challenge.UserID, found.UserID)
	assert.Equal(t, challenge.Device.DeviceID, found.Device.DeviceID)
}

func TestChallengeStore_FindScopedByTenant(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := &entity.BiometricChallenge{
		State:    "state-abc",
		TenantID: "tenant-1",
	}
	require.NoError(t, store.Save(ctx, challenge, time.Minute))

	// Same state under a different tenant must not resolve.
	_, err := store.Find(ctx, "tenant-2", "state-abc")
	assert.ErrorIs(t, err, repository.ErrChallengeNotFound)
}

func TestChallengeStore_ExpiresWithTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := &entity.BiometricChallenge{
		State:    "state-abc",
		TenantID: "tenant-1",
	}
	require.NoError(t, store.Save(ctx, challenge, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Find(ctx, "tenant-1", "state-abc")
	assert.ErrorIs(t, err, repository.ErrChallengeNotFound)
}

func TestChallengeStore_DeleteIsIdempotent(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewChallengeStore(client)
	ctx := context.Background()

	challenge := &entity.BiometricChallenge{
		State:    "state-abc",
		TenantID: "tenant-1",
	}
	require.NoError(t, store.Save(ctx, challenge, time.Minute))

	require.NoError(t, store.Delete(ctx, "tenant-1", "state-abc"))
	// Second delete of an absent key is still a success.
	require.NoError(t, store.Delete(ctx, "tenant-1", "state-abc"))

	_, err := store.Find(ctx, "tenant-1", "state-abc")
	assert.ErrorIs(t, err, repository.ErrChallengeNotFound)
}
