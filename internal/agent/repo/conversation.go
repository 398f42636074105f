// Package repo persists conversation history for the chat frontend.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/catalog-agent/server/internal/agent/model"
	errx "github.com/catalog-agent/server/internal/core/error"
	logx "github.com/catalog-agent/server/pkg/logger"
)

type RedisTurnRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisTurnRepository(rdb redis.Cmdable, ttl time.Duration) *RedisTurnRepository {
	return &RedisTurnRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisTurnRepository) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:turns", conversationID)
}

func (r *RedisTurnRepository) AppendTurns(ctx context.Context, conversationID string, turns ...model.ConversationTurn) error {
	key := r.conversationKey(conversationID)
	for _, turn := range turns {
		b, err := json.Marshal(turn)
		if err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal turn")
			return fmt.Errorf("marshal turn: %w", err)
		}
		if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to push turn to redis")
			return errx.WrapRedis(err)
		}
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
		}
	}
	return nil
}

func (r *RedisTurnRepository) LoadTurns(ctx context.Context, conversationID string) ([]model.ConversationTurn, error) {
	key := r.conversationKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.ConversationTurn{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation turns from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]model.ConversationTurn, 0, len(rows))
	for i, s := range rows {
		var t model.ConversationTurn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal turn")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisTurnRepository) ClearTurns(ctx context.Context, conversationID string) error {
	key := r.conversationKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation turns from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisTurnRepository) CountTurns(ctx context.Context, conversationID string) (int, error) {
	key := r.conversationKey(conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to count conversation turns in redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.TurnRepository = (*RedisTurnRepository)(nil)
