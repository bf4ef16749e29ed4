package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles per-car booking locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireCarLock attempts to lock the car for a booking.
// Returns the lock token and true if acquired, false if already held.
func (s *LockStore) AcquireCarLock(ctx context.Context, carID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, carLockKey(carID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}

	return token, ok, nil
}

// ReleaseCarLock releases the car lock if token still owns it.
func (s *LockStore) ReleaseCarLock(ctx context.Context, carID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{carLockKey(carID)}, token).Err()
}

func carLockKey(carID string) string {
	return "lock:car:" + carID
}
