package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore é um domain.TTLStore sobre Redis. A expiração é a nativa do Redis
// e Append usa LPUSH (a chave vira uma lista Redis).
type RedisStore struct {
	rdb *redis.Client

	// prefix isola as chaves do intake em um Redis compartilhado.
	prefix    string
	scanCount int64
}

type RedisStoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = strings.TrimSuffix(prefix, ":")
		if s.prefix != "" {
			s.prefix += ":"
		}
	}
}

func WithScanCount(n int64) RedisStoreOption {
	return func(s *RedisStore) { s.scanCount = n }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{rdb: rdb, scanCount: 100}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) k(key string) string { return s.prefix + key }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.k(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.k(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, key, item string) (int, error) {
	n, err := s.rdb.LPush(ctx, s.k(key), item).Result()
	if err != nil {
		return 0, fmt.Errorf("redis lpush %q: %w", key, err)
	}
	return int(n), nil
}

// Expire com ttl <= 0 remove a expiração (PERSIST) em vez de apagar a chave.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return s.persist(ctx, key)
	}
	ok, err := s.rdb.Expire(ctx, s.k(key), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis expire %q: %w", key, err)
	}
	return ok, nil
}

// persist devolve true se a chave existe, tenha ou não expiração.
func (s *RedisStore) persist(ctx context.Context, key string) (bool, error) {
	var exists *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, s.k(key))
		pipe.Persist(ctx, s.k(key))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis persist %q: %w", key, err)
	}
	return exists.Val() > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.k(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// KeysMatching usa SCAN (nunca KEYS) para não bloquear o servidor.
func (s *RedisStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	match := escapeRedisPattern(s.prefix) + escapeRedisPattern(pattern)

	var out []string
	iter := s.rdb.Scan(ctx, 0, match, s.scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", pattern, err)
	}
	return out, nil
}

// Incr implementa domain.Counter com INCR+EXPIRE na mesma transação.
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, s.k(key))
	if ttl > 0 {
		pipe.Expire(ctx, s.k(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// escapeRedisPattern mantém apenas '*' como curinga no MATCH do SCAN.
func escapeRedisPattern(p string) string {
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
