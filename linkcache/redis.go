package linkcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// RedisConfig holds connection settings for the Redis-backed cache.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr     string
	Username string
	Password string
	DB       int

	// KeyPrefix namespaces link keys, e.g. "sso:link:".
	KeyPrefix string

	// Timeouts (defaults: Dial=5s, Read=3s, Write=3s).
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis is a Cache backed by a Redis server. It is the deployment-grade
// implementation: links survive server restarts and are shared across
// load-balanced server processes, and expiry is enforced by Redis TTLs.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to Redis and returns a link cache. It fails fast if
// the server is unreachable.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewRedisWithClient wraps a pre-configured client. This is useful for
// testing with miniredis.
func NewRedisWithClient(client redis.UniversalClient, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

// Close releases the underlying client connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(sid string) string {
	return r.keyPrefix + sid
}

func (r *Redis) Put(ctx context.Context, sid, sessionRef string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(sid), sessionRef, ttl).Err(); err != nil {
		return fmt.Errorf("storing session link: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, sid string) (string, error) {
	ref, err := r.client.Get(ctx, r.key(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading session link: %w", err)
	}
	return ref, nil
}
