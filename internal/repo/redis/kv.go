/**
 * 缓存仓库层:Redis键值存储
 * @author: sun977
 * @date: 2025.11.21
 * @description: 进度缓存KV接口的Redis实现(适合多实例部署)
 * @note: 键的过期交给Redis自身的淘汰策略,本层只负责批次终态后的显式清理
 */
package redis

import (
	"context"
	"fmt"
	"time"

	"scanmaster/internal/repo/cache"

	"github.com/go-redis/redis/v8"
)

// KVStore Redis键值存储
type KVStore struct {
	client *redis.Client
	ttl    time.Duration // 兜底过期时间,0表示不过期
}

// NewKVStore 创建Redis键值存储实例
func NewKVStore(client *redis.Client, ttl time.Duration) *KVStore {
	return &KVStore{
		client: client,
		ttl:    ttl,
	}
}

// Get 读取键值 [键不存在返回cache.ErrKeyNotFound]
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", cache.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// Set 写入键值
func (s *KVStore) Set(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Exists 判断键是否存在
func (s *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete 删除单个键
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// DeleteMany 删除多个键
func (s *KVStore) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// GetMany 批量读取 [缺失的键返回空字符串占位,与keys等长]
func (s *KVStore) GetMany(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget keys: %w", err)
	}
	result := make([]string, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			result[i] = str
		}
	}
	return result, nil
}
