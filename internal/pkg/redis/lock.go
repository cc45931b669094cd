package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockHeld is returned when the lock is already owned by another caller.
var ErrLockHeld = errors.New("lock already held")

// unlockScript deletes the lock only when the caller still owns it.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// Lock acquires a lease via SETNX and returns the owner token.
func (c *Client) Lock(ctx context.Context, key string, expiration time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, key, token, expiration).Result()
	if err != nil {
		c.logger.Error("redis lock failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrLockHeld, key)
	}

	c.logger.Debug("redis lock acquired",
		zap.String("key", key),
		zap.Duration("expiration", expiration),
	)

	return token, nil
}

// Unlock releases a lease. The token must match the one returned by Lock.
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	result, err := c.rdb.Eval(ctx, unlockScript, []string{key}, token).Result()
	if err != nil {
		c.logger.Error("redis unlock failed", zap.String("key", key), zap.Error(err))
		return err
	}

	if n, ok := result.(int64); !ok || n == 0 {
		return fmt.Errorf("failed to release lock: token mismatch or lock expired")
	}

	return nil
}

// WithLock runs fn while holding the lease, releasing it afterwards.
func (c *Client) WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error {
	token, err := c.Lock(ctx, key, expiration)
	if err != nil {
		return err
	}

	defer func() {
		if err := c.Unlock(ctx, key, token); err != nil {
			c.logger.Error("failed to unlock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn()
}
