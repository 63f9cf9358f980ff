// Package locks guards booking critical sections per slot so two concurrent
// submissions for the same date and time cannot both pass the conflict check.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("locks: slot lock not acquired")
)

// Locker runs fn while holding a lock on every slot key.
type Locker interface {
	WithSlotLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// SlotKey builds the lock key for a (date, time) slot.
func SlotKey(date, timeSlot string) string {
	return "lock:slot:" + date + ":" + strings.ReplaceAll(timeSlot, " ", "")
}

// normalizeKeys dedups and sorts keys so every caller acquires in the same order.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker that uses a per slot Redis key.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) WithSlotLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = normalizeKeys(keys)
	token := uuid.NewString()

	held := make([]string, 0, len(keys))
	defer func() {
		for _, key := range held {
			_ = l.release(context.WithoutCancel(ctx), key, token)
		}
	}()

	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("locks: acquire %s: %w", key, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}
		held = append(held, key)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("locks: release %s: %w", key, err)
	}
	return nil
}

// MemoryLocker is the single-process fallback used when Redis is not configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &MemoryLocker{held: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (l *MemoryLocker) WithSlotLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = normalizeKeys(keys)

	l.mu.Lock()
	now := l.now()
	for _, key := range keys {
		if exp, ok := l.held[key]; ok && now.Before(exp) {
			l.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}
	}
	for _, key := range keys {
		l.held[key] = now.Add(l.ttl)
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		for _, key := range keys {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}
