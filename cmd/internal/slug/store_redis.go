package slug

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	slugKeyPrefix = "drop:slug:"
	metaKeyPrefix = "drop:meta:"
)

// RedisStore is a Store backed by Redis, the backend the hosted deployment
// uses. Both directions of a mapping are written in one pipeline.
//
// Ownership model:
// - RedisStore owns the client it was constructed from and closes it.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore constructs a Redis-backed Store from a redis:// URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error { return s.rdb.Close() }

// Ping validates connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func slugKey(slug string) string { return slugKeyPrefix + slug }
func metaKey(addr string) string { return metaKeyPrefix + addr }

// Save writes slug → address and address → meta in a single pipeline.
func (s *RedisStore) Save(ctx context.Context, m Mapping) error {
	meta, err := json.Marshal(m)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, slugKey(m.Slug), m.DropAddress, 0)
	pipe.Set(ctx, metaKey(m.DropAddress), meta, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Resolve returns the drop address bound to slug.
func (s *RedisStore) Resolve(ctx context.Context, slug string) (string, error) {
	addr, err := s.rdb.Get(ctx, slugKey(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return addr, nil
}

// LookupByDrops fetches meta records for all addresses in one MGET.
// Malformed entries are skipped rather than failing the whole lookup.
func (s *RedisStore) LookupByDrops(ctx context.Context, dropAddresses []string) (map[string]Mapping, error) {
	if len(dropAddresses) == 0 {
		return map[string]Mapping{}, nil
	}

	keys := make([]string, len(dropAddresses))
	for i, addr := range dropAddresses {
		keys[i] = metaKey(addr)
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Mapping, len(dropAddresses))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok || raw == "" {
			continue
		}
		var m Mapping
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		out[dropAddresses[i]] = m
	}
	return out, nil
}
