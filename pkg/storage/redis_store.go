package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisOptions Redis 连接参数
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	Timeout      time.Duration
	TTL          time.Duration // 0 表示永不过期
	MaxRetries   uint64
	RetryBackoff time.Duration
}

// RedisStore 基于 Redis 的存储
// 适合多设备共享画像的部署；每次调用使用独立的超时上下文
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	ttl     time.Duration
}

// NewRedisClient 创建 Redis 客户端并以指数退避重试 PING
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	b := backoff.NewExponentialBackOff()
	if opts.RetryBackoff > 0 {
		b.InitialInterval = opts.RetryBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, opts.MaxRetries), ctx)

	err := backoff.Retry(func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.Warnf("Redis connection to %s failed: %v, retrying...", opts.Addr, err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logrus.Infof("connected to Redis at %s", opts.Addr)
	return client, nil
}

// NewRedisStore 使用已有客户端创建存储
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RedisStore{
		client:  client,
		prefix:  opts.KeyPrefix,
		timeout: timeout,
		ttl:     opts.TTL,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get 实现 Store
func (s *RedisStore) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key(key), err)
	}
	return data, nil
}

// Set 实现 Store
func (s *RedisStore) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(key), err)
	}
	return nil
}
