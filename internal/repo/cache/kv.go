/**
 * 缓存仓库层:KV存储抽象
 * @author: sun977
 * @date: 2025.11.21
 * @description: 进度缓存使用的键值存储接口
 * @note: 值始终是整个快照的JSON字符串,不允许按字段拆分存储
 */
package cache

import (
	"context"
	"errors"
)

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("cache key not found")

// KV 键值存储接口
// Redis实现用于部署,内存实现用于单机与测试
type KV interface {
	// Get 读取键值 [键不存在返回ErrKeyNotFound]
	Get(ctx context.Context, key string) (string, error)
	// Set 写入键值
	Set(ctx context.Context, key string, value string) error
	// Exists 判断键是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Delete 删除单个键
	Delete(ctx context.Context, key string) error
	// DeleteMany 删除多个键
	DeleteMany(ctx context.Context, keys []string) error
	// GetMany 批量读取 [缺失的键返回空字符串占位,与keys等长]
	GetMany(ctx context.Context, keys []string) ([]string, error)
}
