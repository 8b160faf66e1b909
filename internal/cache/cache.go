// Package cache provides a Redis-backed run lock and a short-TTL cache of
// recent run results, so that two requests for the same configuration
// within a short window don't trigger two concurrent generations.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/shiftroster/internal/engine"
)

// ErrLockHeld is returned by AcquireRunLock when another replica already
// holds the lock for the same configuration hash.
var ErrLockHeld = errors.New("cache: run lock already held")

// RunCache serializes concurrent generation requests for identical
// configurations across replicas and caches recent results.
type RunCache struct {
	redis   *redis.Client
	lockTTL time.Duration
	runTTL  time.Duration
}

// NewRunCache creates a RunCache. lockTTL bounds how long a generation may
// hold its serialization lock; runTTL bounds how long a completed result
// stays cached.
func NewRunCache(rdb *redis.Client, lockTTL, runTTL time.Duration) *RunCache {
	return &RunCache{redis: rdb, lockTTL: lockTTL, runTTL: runTTL}
}

// ConfigHash returns a stable key identifying cfg's content, used both for
// the lock and the result cache.
func ConfigHash(cfg *engine.Config) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hashing config: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func lockKey(hash string) string   { return "rosterctl:lock:" + hash }
func resultKey(hash string) string { return "rosterctl:result:" + hash }

// AcquireRunLock attempts to take the serialization lock for hash, via
// SETNX with a TTL so a crashed holder can't wedge the lock forever.
// Returns ErrLockHeld if another replica already holds it.
func (c *RunCache) AcquireRunLock(ctx context.Context, hash string, owner uuid.UUID) error {
	ok, err := c.redis.SetNX(ctx, lockKey(hash), owner.String(), c.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// ReleaseRunLock releases the lock for hash, but only if owner still holds
// it — a lock that expired and was reacquired by someone else must not be
// deleted out from under them.
func (c *RunCache) ReleaseRunLock(ctx context.Context, hash string, owner uuid.UUID) error {
	held, err := c.redis.Get(ctx, lockKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("reading run lock: %w", err)
	}
	if held != owner.String() {
		return nil
	}
	return c.redis.Del(ctx, lockKey(hash)).Err()
}

// cachedResult is the JSON shape stored under resultKey.
type cachedResult struct {
	RunID      uuid.UUID         `json:"run_id"`
	Schedule   engine.Schedule   `json:"schedule"`
	Statistics engine.Statistics `json:"statistics"`
}

// PutResult caches a completed run's schedule and statistics under hash.
func (c *RunCache) PutResult(ctx context.Context, hash string, runID uuid.UUID, result *engine.Result) error {
	b, err := json.Marshal(cachedResult{
		RunID:      runID,
		Schedule:   result.State.Schedule,
		Statistics: result.Statistics,
	})
	if err != nil {
		return fmt.Errorf("marshalling cached result: %w", err)
	}
	return c.redis.Set(ctx, resultKey(hash), b, c.runTTL).Err()
}

// GetResult returns the cached run for hash and its run id, or
// (nil, uuid.Nil, nil) on a cache miss.
func (c *RunCache) GetResult(ctx context.Context, hash string) (*engine.Result, uuid.UUID, error) {
	b, err := c.redis.Get(ctx, resultKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, uuid.Nil, nil
		}
		return nil, uuid.Nil, fmt.Errorf("reading cached result: %w", err)
	}

	var cr cachedResult
	if err := json.Unmarshal(b, &cr); err != nil {
		return nil, uuid.Nil, fmt.Errorf("unmarshalling cached result: %w", err)
	}

	return &engine.Result{
		State:      &engine.State{Schedule: cr.Schedule},
		Statistics: cr.Statistics,
	}, cr.RunID, nil
}
