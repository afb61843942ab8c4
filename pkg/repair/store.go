package repair

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/constants"
	"outbound-reply-pipeline/pkg/models"
)

// StateStore is the per-conversation repair state. Update serializes
// concurrent turns for the same conversation: the mutator runs under a
// per-key lock and sees the latest persisted state.
type StateStore interface {
	Get(ctx context.Context, conversationID string) (*models.RepairState, error)
	Update(ctx context.Context, conversationID string, fn func(*models.RepairState)) (*models.RepairState, error)
}

const shardCount = 16

func shardFor(conversationID string) int {
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return int(h.Sum32() % shardCount)
}

type memoryShard struct {
	mu     sync.Mutex
	states map[string]*models.RepairState
}

// MemoryStore is the in-process store: a sharded map with per-shard locking
// and a janitor sweep for TTL retention.
type MemoryStore struct {
	shards [shardCount]*memoryShard
	ttl    time.Duration
	logger *logrus.Logger
}

func NewMemoryStore(ttl time.Duration, logger *logrus.Logger) *MemoryStore {
	store := &MemoryStore{
		ttl:    ttl,
		logger: logger,
	}
	for i := range store.shards {
		store.shards[i] = &memoryShard{states: make(map[string]*models.RepairState)}
	}
	return store
}

func (s *MemoryStore) Get(_ context.Context, conversationID string) (*models.RepairState, error) {
	shard := s.shards[shardFor(conversationID)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, ok := shard.states[conversationID]
	if !ok {
		return models.NewRepairState(), nil
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, conversationID string, fn func(*models.RepairState)) (*models.RepairState, error) {
	shard := s.shards[shardFor(conversationID)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, ok := shard.states[conversationID]
	if !ok {
		state = models.NewRepairState()
		shard.states[conversationID] = state
	}
	fn(state)
	state.UpdatedAt = time.Now().UTC()
	return state.Clone(), nil
}

// StartJanitor runs the TTL sweep until the context is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *MemoryStore) sweep() {
	cutoff := time.Now().UTC().Add(-s.ttl)
	removed := 0

	for _, shard := range s.shards {
		shard.mu.Lock()
		for id, state := range shard.states {
			if state.UpdatedAt.Before(cutoff) {
				delete(shard.states, id)
				removed++
			}
		}
		shard.mu.Unlock()
	}

	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"removed_count": removed,
			"ttl":           s.ttl,
		}).Info("Swept expired repair state")
	}
}

// RedisStore persists one JSON document per conversation with the configured
// TTL refreshed on every write. Per-key locks serialize same-conversation
// turns within this process; the pipeline contract assumes at most one
// in-flight turn per conversation at a time.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	locks  [shardCount]sync.Mutex
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) key(conversationID string) string {
	return constants.RepairStateKeyPrefix + conversationID
}

func (s *RedisStore) load(ctx context.Context, conversationID string) (*models.RepairState, error) {
	raw, err := s.rdb.Get(ctx, s.key(conversationID)).Result()
	if err != nil {
		if err == redis.Nil {
			return models.NewRepairState(), nil
		}
		return nil, fmt.Errorf("failed to load repair state: %w", err)
	}

	var state models.RepairState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("invalid repair state document: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*models.RepairState, error) {
	return s.load(ctx, conversationID)
}

func (s *RedisStore) Update(ctx context.Context, conversationID string, fn func(*models.RepairState)) (*models.RepairState, error) {
	lock := &s.locks[shardFor(conversationID)]
	lock.Lock()
	defer lock.Unlock()

	state, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	fn(state)
	state.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode repair state: %w", err)
	}

	if err := s.rdb.Set(ctx, s.key(conversationID), payload, s.ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("conversation_id", conversationID).Error("Failed to persist repair state")
		return nil, fmt.Errorf("failed to persist repair state: %w", err)
	}

	return state.Clone(), nil
}
