package database

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/portalback/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Redis Redis连接，内存模式下附带 miniredis 实例
type Redis struct {
	*redis.Client
	mini *miniredis.Miniredis
}

// OpenRedis 初始化Redis连接
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	if cfg.Mode == "memory" {
		mini, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start memory redis: %w", err)
		}
		return &Redis{Client: redis.NewClient(&redis.Options{Addr: mini.Addr()}), mini: mini}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return &Redis{Client: client}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	err := r.Client.Close()
	if r.mini != nil {
		r.mini.Close()
	}
	return err
}

// Cache Redis缓存操作封装
type Cache struct {
	client redis.Cmdable
	prefix string
}

// NewCache 创建缓存实例
func NewCache(client redis.Cmdable, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// key 生成带前缀的key
func (c *Cache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// Set 设置缓存
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, expiration).Err()
}

// Get 获取缓存，未命中时返回 false
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Del 删除缓存
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = c.key(k)
	}
	return c.client.Del(ctx, fullKeys...).Err()
}
