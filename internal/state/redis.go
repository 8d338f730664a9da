package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each value as a JSON blob under "<namespace>:<key>" and
// maintains a per-namespace index set for List. Render job records expire
// after 24 hours, matching the retention on their dispatch tasks.
type RedisStore struct {
	client *redis.Client
	ttls   map[string]time.Duration
	locks  *keyedMutex
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttls: map[string]time.Duration{
			NamespaceRenderJobs: 24 * time.Hour,
			NamespaceAudio:      24 * time.Hour,
		},
		locks: newKeyedMutex(),
	}
}

func dataKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

func indexKey(namespace string) string {
	return fmt.Sprintf("ns:%s", namespace)
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, dataKey(namespace, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("state get %s/%s: %w", namespace, key, err)
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state marshal %s/%s: %w", namespace, key, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey(namespace, key), data, s.ttls[namespace])
	pipe.SAdd(ctx, indexKey(namespace), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("state set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, dataKey(namespace, key))
	pipe.SRem(ctx, indexKey(namespace), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("state delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, namespace string) ([][]byte, error) {
	keys, err := s.client.SMembers(ctx, indexKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("state list %s: %w", namespace, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = dataKey(namespace, k)
	}
	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("state list %s: %w", namespace, err)
	}

	out := make([][]byte, 0, len(vals))
	for i, v := range vals {
		if v == nil {
			// Value expired out from under the index; drop the stale entry.
			s.client.SRem(ctx, indexKey(namespace), keys[i])
			continue
		}
		if str, ok := v.(string); ok {
			out = append(out, []byte(str))
		}
	}
	return out, nil
}

func (s *RedisStore) Update(ctx context.Context, namespace, key string, fn UpdateFunc) error {
	// Per-key serialization is process-local; the service runs single-node
	// with the store as its sole writer, so this is sufficient.
	m := s.locks.lock(dataKey(namespace, key))
	defer m.Unlock()

	data, ok, err := s.Get(ctx, namespace, key)
	if err != nil {
		return err
	}
	next, err := fn(data, ok)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return s.Set(ctx, namespace, key, next)
}
