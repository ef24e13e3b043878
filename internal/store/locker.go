package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type heldLock struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process lock table with expiry. Every acquisition
// gets its own token and only that token releases the lock.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]heldLock
	now   func() time.Time
}

// NewLocalLocker creates an empty lock table
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]heldLock),
		now:   time.Now,
	}
}

// AcquireLock takes lockKey unless it is held and not yet expired. The
// returned token must be passed to ReleaseLock.
func (l *LocalLocker) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[lockKey]; ok && now.Before(held.expires) {
		return "", false, nil
	}
	token := uuid.New().String()
	l.locks[lockKey] = heldLock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// ReleaseLock frees lockKey if it is still held under token
func (l *LocalLocker) ReleaseLock(ctx context.Context, lockKey, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[lockKey]; ok && held.token == token {
		delete(l.locks, lockKey)
	}
	return nil
}
