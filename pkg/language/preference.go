package language

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/constants"
)

// PreferenceStore accumulates a per-conversation majority-language
// preference. Optional collaborator: the pipeline is correct without one.
type PreferenceStore interface {
	Record(ctx context.Context, conversationID, language string) error
	Preferred(ctx context.Context, conversationID string) (string, error)
}

// RedisPreferenceStore keeps one counter hash per conversation.
type RedisPreferenceStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisPreferenceStore(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisPreferenceStore {
	return &RedisPreferenceStore{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisPreferenceStore) Record(ctx context.Context, conversationID, language string) error {
	key := constants.LanguagePrefsKeyPrefix + conversationID

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, language, 1)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record language preference: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"language":        language,
	}).Debug("Recorded language preference")

	return nil
}

func (s *RedisPreferenceStore) Preferred(ctx context.Context, conversationID string) (string, error) {
	key := constants.LanguagePrefsKeyPrefix + conversationID

	counts, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to read language preference: %w", err)
	}

	preferred := ""
	best := int64(0)
	for language, raw := range counts {
		var count int64
		if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
			continue
		}
		if count > best {
			preferred = language
			best = count
		}
	}
	return preferred, nil
}
