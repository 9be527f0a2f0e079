/**
 * 扫描服务层:批次状态汇总
 * @author: sun977
 * @date: 2025.11.23
 * @description: 按子目标状态重算批次汇总状态,同步写入数据库与缓存
 * @note: 重算是已提交子状态的纯函数,幂等,并发竞争也安全
 */
package scanner

import (
	"context"
	"fmt"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/logger"
)

// RecomputeOrderRollup 重算批次汇总状态并持久化到数据库与缓存
// 汇总到达终态(Finished/Failed)时清理该批次的全部缓存键,返回最终汇总状态
func (s *ScanService) RecomputeOrderRollup(ctx context.Context, orderID uint64) (scanModel.OrderStatus, error) {
	targets, err := s.targetRepo.GetTargetsByOrderID(ctx, orderID)
	if err != nil {
		return scanModel.OrderCreated, fmt.Errorf("failed to load order targets: %w", err)
	}

	statuses := make([]scanModel.TargetStatus, 0, len(targets))
	targetIDs := make([]uint64, 0, len(targets))
	for _, t := range targets {
		statuses = append(statuses, t.Status)
		targetIDs = append(targetIDs, t.ID)
	}

	rollup := scanModel.RollupStatus(statuses)

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, rollup); err != nil {
		return rollup, fmt.Errorf("failed to persist order rollup: %w", err)
	}

	if rollup.IsTerminal() {
		// 终态后缓存键一律删除,这是唯一的清理路径
		if err := s.cache.DeleteOrderTree(ctx, orderID); err != nil {
			logger.Warnf("failed to clean up cache for order %d: %v", orderID, err)
		}
		logger.LogProgressEvent(orderID, "rollup_terminal", rollup.String(), nil)
		return rollup, nil
	}

	// 非终态时刷新缓存快照
	if err := s.cache.UpdateOrder(ctx, orderID, func(snap *scanModel.OrderSnapshot) {
		snap.Status = rollup
		snap.TargetIDs = targetIDs
	}); err != nil {
		// 键尚未创建或已被清理,回退到整快照写入
		order, getErr := s.orderRepo.GetOrderByID(ctx, orderID)
		if getErr != nil || order == nil {
			logger.Warnf("failed to refresh order snapshot for order %d: %v", orderID, err)
			return rollup, nil
		}
		if setErr := s.writeOrderSnapshot(ctx, order, targetIDs); setErr != nil {
			logger.Warnf("failed to rewrite order snapshot for order %d: %v", orderID, setErr)
		}
	}

	return rollup, nil
}
