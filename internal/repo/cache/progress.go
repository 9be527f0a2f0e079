/**
 * 缓存仓库层:进度快照缓存
 * @author: sun977
 * @date: 2025.11.21
 * @description: Target/Order状态快照的缓存读写协议
 * @func: get/set/update(读-合并-写)/delete/批量读取/批次级清理
 * @note: 缓存不是权威数据源,数据库才是;键缺失视为"已清理/无可报告"
 */
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	scanModel "scanmaster/internal/model/scanner"

	"scanmaster/internal/pkg/logger"
)

// 快照键前缀 [target_<id> / order_<id>]
const (
	targetKeyPrefix = "target_"
	orderKeyPrefix  = "order_"
)

// TargetKey 构建目标快照键
func TargetKey(targetID uint64) string {
	return fmt.Sprintf("%s%d", targetKeyPrefix, targetID)
}

// OrderKey 构建批次快照键
func OrderKey(orderID uint64) string {
	return fmt.Sprintf("%s%d", orderKeyPrefix, orderID)
}

// ProgressCache 进度快照缓存
// update操作的读-合并-写对分布式写者不是原子的,这里依赖每个键在实践中只有一个写者
// (一个Scan Job独占自己的Target键),以及汇总重算的幂等性
type ProgressCache struct {
	kv         KV            // 底层KV存储
	retries    int           // update等待键出现的重试次数上限
	retryDelay time.Duration // 重试间隔
}

// NewProgressCache 创建进度缓存实例
func NewProgressCache(kv KV, retries int, retryDelay time.Duration) *ProgressCache {
	if retries <= 0 {
		retries = 5
	}
	if retryDelay <= 0 {
		retryDelay = 200 * time.Millisecond
	}
	return &ProgressCache{
		kv:         kv,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// GetTarget 读取目标快照 [键不存在返回nil,nil]
func (c *ProgressCache) GetTarget(ctx context.Context, targetID uint64) (*scanModel.TargetSnapshot, error) {
	raw, err := c.kv.Get(ctx, TargetKey(targetID))
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get target snapshot: %w", err)
	}
	snap, err := scanModel.DecodeTargetSnapshot(raw)
	if err != nil {
		// 快照损坏按缺失处理,读取方回退到数据库
		logger.Warnf("corrupt target snapshot for key %s: %v", TargetKey(targetID), err)
		return nil, nil
	}
	return snap, nil
}

// SetTarget 写入目标快照 [整快照覆盖写]
func (c *ProgressCache) SetTarget(ctx context.Context, snap *scanModel.TargetSnapshot) error {
	snap.UpdatedAt = time.Now()
	raw, err := snap.Encode()
	if err != nil {
		return err
	}
	if err := c.kv.Set(ctx, TargetKey(snap.ID), raw); err != nil {
		return fmt.Errorf("failed to set target snapshot: %w", err)
	}
	return nil
}

// UpdateTarget 读-合并-写更新目标快照
// 容忍与写者竞争时键尚未创建的短暂窗口:有界重试等待键出现,超过上限返回ErrKeyNotFound并记录miss
func (c *ProgressCache) UpdateTarget(ctx context.Context, targetID uint64, mutate func(*scanModel.TargetSnapshot)) error {
	for attempt := 0; attempt <= c.retries; attempt++ {
		snap, err := c.GetTarget(ctx, targetID)
		if err != nil {
			return err
		}
		if snap != nil {
			mutate(snap)
			return c.SetTarget(ctx, snap)
		}
		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	logger.Warnf("cache update miss: key %s never appeared after %d retries", TargetKey(targetID), c.retries)
	return ErrKeyNotFound
}

// GetOrder 读取批次快照 [键不存在返回nil,nil]
func (c *ProgressCache) GetOrder(ctx context.Context, orderID uint64) (*scanModel.OrderSnapshot, error) {
	raw, err := c.kv.Get(ctx, OrderKey(orderID))
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order snapshot: %w", err)
	}
	snap, err := scanModel.DecodeOrderSnapshot(raw)
	if err != nil {
		logger.Warnf("corrupt order snapshot for key %s: %v", OrderKey(orderID), err)
		return nil, nil
	}
	return snap, nil
}

// SetOrder 写入批次快照 [整快照覆盖写]
func (c *ProgressCache) SetOrder(ctx context.Context, snap *scanModel.OrderSnapshot) error {
	snap.UpdatedAt = time.Now()
	raw, err := snap.Encode()
	if err != nil {
		return err
	}
	if err := c.kv.Set(ctx, OrderKey(snap.ID), raw); err != nil {
		return fmt.Errorf("failed to set order snapshot: %w", err)
	}
	return nil
}

// UpdateOrder 读-合并-写更新批次快照 [重试语义与UpdateTarget一致]
func (c *ProgressCache) UpdateOrder(ctx context.Context, orderID uint64, mutate func(*scanModel.OrderSnapshot)) error {
	for attempt := 0; attempt <= c.retries; attempt++ {
		snap, err := c.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if snap != nil {
			mutate(snap)
			return c.SetOrder(ctx, snap)
		}
		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	logger.Warnf("cache update miss: key %s never appeared after %d retries", OrderKey(orderID), c.retries)
	return ErrKeyNotFound
}

// HasOrder 判断批次键是否仍存在 [流式端点用于判定"已清理"]
func (c *ProgressCache) HasOrder(ctx context.Context, orderID uint64) (bool, error) {
	return c.kv.Exists(ctx, OrderKey(orderID))
}

// HasTarget 判断目标键是否仍存在
func (c *ProgressCache) HasTarget(ctx context.Context, targetID uint64) (bool, error) {
	return c.kv.Exists(ctx, TargetKey(targetID))
}

// GetOrderTargets 解析批次快照内嵌的子目标ID列表,经批量读取返回全部子目标快照
// 缺失或损坏的子快照直接跳过
func (c *ProgressCache) GetOrderTargets(ctx context.Context, orderID uint64) (*scanModel.OrderSnapshot, []*scanModel.TargetSnapshot, error) {
	orderSnap, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if orderSnap == nil {
		return nil, nil, nil
	}

	keys := make([]string, 0, len(orderSnap.TargetIDs))
	for _, id := range orderSnap.TargetIDs {
		keys = append(keys, TargetKey(id))
	}

	raws, err := c.kv.GetMany(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get order targets: %w", err)
	}

	targets := make([]*scanModel.TargetSnapshot, 0, len(raws))
	for i, raw := range raws {
		if raw == "" {
			continue
		}
		snap, err := scanModel.DecodeTargetSnapshot(raw)
		if err != nil {
			logger.Warnf("corrupt target snapshot for key %s: %v", keys[i], err)
			continue
		}
		targets = append(targets, snap)
	}
	return orderSnap, targets, nil
}

// DeleteOrderTree 删除批次键及其全部子目标键
// 批次汇总到达终态后的唯一清理路径,用于约束缓存规模
func (c *ProgressCache) DeleteOrderTree(ctx context.Context, orderID uint64) error {
	orderSnap, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, 8)
	if orderSnap != nil {
		for _, id := range orderSnap.TargetIDs {
			keys = append(keys, TargetKey(id))
		}
	}
	keys = append(keys, OrderKey(orderID))

	if err := c.kv.DeleteMany(ctx, keys); err != nil {
		return fmt.Errorf("failed to delete order cache tree: %w", err)
	}
	return nil
}

// TargetRecords 将目标快照列表转换为通用记录,供ApplyFilter聚合统计
func TargetRecords(snaps []*scanModel.TargetSnapshot) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(snaps))
	for _, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records
}
