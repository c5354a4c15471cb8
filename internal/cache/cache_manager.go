package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	answerKeyPrefix  = "survey_match:answer_key"
	DefaultAnswerTTL = 10 * time.Minute
)

// CacheManager owns the key layout of cached domain objects. A nil manager is
// valid and caches nothing.
type CacheManager struct {
	service CacheService
	ttl     time.Duration
	logger  *slog.Logger
}

func NewCacheManager(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CacheManager {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultAnswerTTL
	}
	return &CacheManager{
		service: NewRedisCache(client, logger),
		ttl:     ttl,
		logger:  logger,
	}
}

func AnswerKeyKey(questionID uint) string {
	return fmt.Sprintf("%s:%d", answerKeyPrefix, questionID)
}

// GetAnswerKey fills dest from the cache and reports whether it was found.
// Cache failures are logged and reported as a miss.
func (m *CacheManager) GetAnswerKey(ctx context.Context, questionID uint, dest interface{}) bool {
	if m == nil {
		return false
	}
	err := m.service.Get(ctx, AnswerKeyKey(questionID), dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn("Answer key cache read failed", "question_id", questionID, "error", err)
	}
	return false
}

func (m *CacheManager) SetAnswerKey(ctx context.Context, questionID uint, value interface{}) {
	if m == nil {
		return
	}
	if err := m.service.Set(ctx, AnswerKeyKey(questionID), value, m.ttl); err != nil {
		m.logger.Warn("Answer key cache write failed", "question_id", questionID, "error", err)
	}
}

func (m *CacheManager) InvalidateAnswerKey(ctx context.Context, questionID uint) {
	if m == nil {
		return
	}
	if err := m.service.Delete(ctx, AnswerKeyKey(questionID)); err != nil {
		m.logger.Warn("Answer key cache invalidation failed", "question_id", questionID, "error", err)
	}
}

// InvalidateAll drops every cached answer key.
func (m *CacheManager) InvalidateAll(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.service.DeletePattern(ctx, answerKeyPrefix+":*")
}
