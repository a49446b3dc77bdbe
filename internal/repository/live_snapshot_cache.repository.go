package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"tradejournal/internal/domain"

	"github.com/redis/go-redis/v9"
)

// LiveSnapshotCacheRepository holds the memoized intraday snapshot
// per user. freshness is judged by the caller from ComputedAt
type LiveSnapshotCacheRepository interface {
	// Get returns nil on a miss
	Get(ctx context.Context, userID string) (*domain.DailySnapshot, error)
	Set(ctx context.Context, userID string, snapshot *domain.DailySnapshot, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

type memoryLiveSnapshotCacheHandler struct {
	mutex   *sync.RWMutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

type memoryCacheEntry struct {
	snapshot  *domain.DailySnapshot
	expiresAt time.Time
}

func NewMemoryLiveSnapshotCache() LiveSnapshotCacheRepository {
	return &memoryLiveSnapshotCacheHandler{
		mutex:   &sync.RWMutex{},
		entries: map[string]memoryCacheEntry{},
		now:     time.Now,
	}
}

func (h *memoryLiveSnapshotCacheHandler) Get(ctx context.Context, userID string) (*domain.DailySnapshot, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	entry, ok := h.entries[userID]
	if !ok || !h.now().Before(entry.expiresAt) {
		return nil, nil
	}
	return entry.snapshot.DeepCopy(), nil
}

func (h *memoryLiveSnapshotCacheHandler) Set(ctx context.Context, userID string, snapshot *domain.DailySnapshot, ttl time.Duration) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.entries[userID] = memoryCacheEntry{
		snapshot:  snapshot.DeepCopy(),
		expiresAt: h.now().Add(ttl),
	}
	return nil
}

func (h *memoryLiveSnapshotCacheHandler) Delete(ctx context.Context, userID string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(h.entries, userID)
	return nil
}

// redis lets every api and lambda instance share one memo
type redisLiveSnapshotCacheHandler struct {
	rdb *redis.Client
}

func NewRedisLiveSnapshotCache(rdb *redis.Client) LiveSnapshotCacheRepository {
	return redisLiveSnapshotCacheHandler{
		rdb: rdb,
	}
}

func liveSnapshotKey(userID string) string {
	return "tradejournal:live-snapshot:" + userID
}

func (h redisLiveSnapshotCacheHandler) Get(ctx context.Context, userID string) (*domain.DailySnapshot, error) {
	data, err := h.rdb.Get(ctx, liveSnapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get live snapshot: %w", err)
	}

	snapshot, err := NormalizeSnapshot("", data)
	if err != nil {
		return nil, nil
	}
	return snapshot, nil
}

func (h redisLiveSnapshotCacheHandler) Set(ctx context.Context, userID string, snapshot *domain.DailySnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode live snapshot: %w", err)
	}
	if err := h.rdb.Set(ctx, liveSnapshotKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set live snapshot: %w", err)
	}
	return nil
}

func (h redisLiveSnapshotCacheHandler) Delete(ctx context.Context, userID string) error {
	if err := h.rdb.Del(ctx, liveSnapshotKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete live snapshot: %w", err)
	}
	return nil
}
