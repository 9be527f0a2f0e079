/**
 * 缓存仓库层:内存键值存储
 * @author: sun977
 * @date: 2025.11.21
 * @description: 进度缓存KV接口的内存实现(单机部署与测试用)
 */
package memory

import (
	"context"
	"sync"

	"scanmaster/internal/repo/cache"
)

// KVStore 内存键值存储
type KVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewKVStore 创建内存键值存储实例
func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string]string),
	}
}

// Get 读取键值 [键不存在返回cache.ErrKeyNotFound]
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", cache.ErrKeyNotFound
	}
	return value, nil
}

// Set 写入键值
func (s *KVStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Exists 判断键是否存在
func (s *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

// Delete 删除单个键
func (s *KVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// DeleteMany 删除多个键
func (s *KVStore) DeleteMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

// GetMany 批量读取 [缺失的键返回空字符串占位,与keys等长]
func (s *KVStore) GetMany(ctx context.Context, keys []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, len(keys))
	for i, key := range keys {
		result[i] = s.data[key]
	}
	return result, nil
}
