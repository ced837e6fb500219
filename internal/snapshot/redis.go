package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/story-client/pkg/world"
)

const keyPrefix = "worldstate:"

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a snapshot store on the given Redis address.
func NewRedisStore(addr string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: rdb,
		logger: logger,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context, id uuid.UUID, st *world.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal world snapshot: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+id.String(), data, 0).Err(); err != nil {
		s.logger.Error("Redis SET failed", "session_id", id, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}

	s.logger.Debug("world snapshot saved", "session_id", id, "bytes", len(data))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id uuid.UUID) (*world.State, error) {
	data, err := s.client.Get(ctx, keyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.Debug("no world snapshot", "session_id", id)
			return nil, nil
		}
		s.logger.Error("Redis GET failed", "session_id", id, "error", err)
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	st := world.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world snapshot: %w", err)
	}
	return st, nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, keyPrefix+id.String()).Err(); err != nil {
		s.logger.Error("Redis DEL failed", "session_id", id, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
