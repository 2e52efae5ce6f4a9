package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisClient caches face embeddings keyed by model and image digest
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

const embeddingKeyPrefix = "embedding"

func NewRedisClient(config RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisClientFrom(rdb, config.TTL)
}

// NewRedisClientFrom wraps an existing go-redis client
func NewRedisClientFrom(client *redis.Client, ttl time.Duration) *RedisClient {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisClient{client: client, ttl: ttl}
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func embeddingKey(model, digest string) string {
	return embeddingKeyPrefix + ":" + model + ":" + digest
}

// Get returns the cached embedding; a miss is (nil, false, nil)
func (r *RedisClient) Get(ctx context.Context, model, digest string) ([]float32, bool, error) {
	raw, err := r.client.Get(ctx, embeddingKey(model, digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(raw, &embedding); err != nil {
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	if len(embedding) == 0 {
		return nil, false, nil
	}
	return embedding, true, nil
}

func (r *RedisClient) Set(ctx context.Context, model, digest string, embedding []float32) error {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	if err := r.client.Set(ctx, embeddingKey(model, digest), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding: %w", err)
	}
	return nil
}
