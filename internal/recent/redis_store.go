package recent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pedrohpiress/banktransaction-queue/internal/models"
	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as JSON in a single Redis list, head first.
type RedisStore struct {
	client *goredis.Client
	key    string
	limit  int64
}

func NewRedisStore(client *goredis.Client, key string, limit int) *RedisStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &RedisStore{client: client, key: key, limit: int64(limit)}
}

func (s *RedisStore) Add(ctx context.Context, entry models.RecentTransaction) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal recent transaction: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, s.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record recent transaction: %w", err)
	}
	return nil
}

// List returns the stored entries, newest first. Entries that no longer decode
// are skipped.
func (s *RedisStore) List(ctx context.Context) ([]models.RecentTransaction, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, s.limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent transactions: %w", err)
	}

	entries := make([]models.RecentTransaction, 0, len(raw))
	for _, item := range raw {
		var entry models.RecentTransaction
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			log.Printf("RedisStore: skipping undecodable entry in %s: %v", s.key, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count recent transactions: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear recent transactions: %w", err)
	}
	return nil
}
