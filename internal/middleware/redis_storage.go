package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage adapts a go-redis client to fiber.Storage so sessions survive
// restarts and are shared across instances.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(addr, password string) *RedisStorage {
	return &RedisStorage{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
	}
}

func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), "sess:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), "sess:"+key, val, exp).Err()
}

func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), "sess:"+key).Err()
}

func (s *RedisStorage) Reset() error {
	return s.client.FlushDB(context.Background()).Err()
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
