/**
 * 推送通道
 * @author: sun977
 * @date: 2025.11.22
 * @description: 面向用户的fire-and-forget消息推送(Redis pub/sub)
 * @note: 尽力投递,不要求ack;订阅方掉线只是读不到消息,发布方不关心
 */
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"scanmaster/internal/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// userChannel 用户推送频道名
func userChannel(userID uint64) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// Publisher 推送发布接口
type Publisher interface {
	// Send 向一个或多个用户推送消息 [尽力投递]
	Send(ctx context.Context, recipients []uint64, payload interface{}) error
}

// RedisPublisher Redis pub/sub发布器
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher 创建Redis发布器实例
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
	}
}

// Send 向每个接收者的频道发布同一份JSON载荷
// 单个频道发布失败只记录日志,不中断其余接收者
func (p *RedisPublisher) Send(ctx context.Context, recipients []uint64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	seen := make(map[uint64]struct{}, len(recipients))
	for _, userID := range recipients {
		if userID == 0 {
			continue
		}
		// 同一次推送去重,staff监看自己的order时owner和requester相同
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		if err := p.client.Publish(ctx, userChannel(userID), data).Err(); err != nil {
			logger.Warnf("failed to publish to %s: %v", userChannel(userID), err)
		}
	}
	return nil
}

// MemoryPublisher 内存发布器 [单机部署与测试用]
// 保留每个用户的推送记录,测试可直接断言
type MemoryPublisher struct {
	mu       sync.Mutex
	messages map[uint64][]string
}

// NewMemoryPublisher 创建内存发布器实例
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		messages: make(map[uint64][]string),
	}
}

// Send 记录推送消息
func (p *MemoryPublisher) Send(ctx context.Context, recipients []uint64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[uint64]struct{}, len(recipients))
	for _, userID := range recipients {
		if userID == 0 {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		p.messages[userID] = append(p.messages[userID], string(data))
	}
	return nil
}

// MessagesFor 返回某用户收到的全部推送
func (p *MemoryPublisher) MessagesFor(userID uint64) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages[userID]))
	copy(out, p.messages[userID])
	return out
}
