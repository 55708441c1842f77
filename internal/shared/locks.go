package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ImportLockKey builds redis keys for per-bank-account import critical sections.
func ImportLockKey(bankAccountID uuid.UUID) string {
	return fmt.Sprintf("ledger:bank:%s:import-lock", bankAccountID)
}

// ImportLock is an advisory per-bank-account lock for callers that need to
// serialize overlapping imports. The import engine itself never takes it;
// the duplicate detector remains the only built-in safeguard.
type ImportLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewImportLock constructs the lock helper. TTL bounds how long a crashed
// holder can block other imports.
func NewImportLock(client *redis.Client, ttl time.Duration) *ImportLock {
	return &ImportLock{client: client, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Acquire attempts to take the lock for a bank account. It returns false
// without waiting when another import already holds it. The returned release
// function only deletes the key if this holder still owns it.
func (l *ImportLock) Acquire(ctx context.Context, bankAccountID uuid.UUID) (func(context.Context) error, bool, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, true, nil
	}
	token := uuid.NewString()
	key := ImportLockKey(bankAccountID)
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("shared: acquire import lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
