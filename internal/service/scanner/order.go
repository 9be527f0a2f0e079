/**
 * 扫描服务层:批次创建与删除
 * @author: sun977
 * @date: 2025.11.23
 * @description: 提交host创建批次,按订阅等级内启用的工具展开为多个目标
 */
package scanner

import (
	"context"
	"fmt"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/logger"
)

// PlaceOrder 提交一个host创建扫描批次
// 按调用方订阅等级内的全部启用工具展开,每个(host, tool)组合一个Target
func (s *ScanService) PlaceOrder(ctx context.Context, caller Caller, host string, maxTier int) (*scanModel.Order, []*scanModel.Target, error) {
	if host == "" {
		return nil, nil, fmt.Errorf("%w: empty host", ErrValidation)
	}

	tools, err := s.toolRepo.ListActiveTools(ctx, maxTier)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tools: %w", err)
	}
	if len(tools) == 0 {
		return nil, nil, fmt.Errorf("%w: no tools available for tier %d", ErrValidation, maxTier)
	}

	order := &scanModel.Order{
		Client:   caller.ClientID,
		TargetIP: host,
		Status:   scanModel.OrderCreated,
	}
	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	targets := make([]*scanModel.Target, 0, len(tools))
	for _, tool := range tools {
		targets = append(targets, &scanModel.Target{
			Host:    host,
			Status:  scanModel.TargetCreated,
			ToolID:  tool.ID,
			OrderID: order.ID,
			ScanBy:  caller.UserID,
		})
	}
	if err := s.targetRepo.CreateTargets(ctx, targets); err != nil {
		return nil, nil, fmt.Errorf("failed to create targets: %w", err)
	}

	logger.LogScanEvent(order.ID, 0, "", host, "order_placed", fmt.Sprintf("%d targets", len(targets)), nil)
	return order, targets, nil
}

// DeleteOrder 软删除批次并级联软删除其全部目标
// 同时清除该批次残留的缓存键
func (s *ScanService) DeleteOrder(ctx context.Context, caller Caller, orderID uint64) error {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if !caller.Privileged && order.Client != caller.ClientID {
		return fmt.Errorf("%w: order %d", ErrForbidden, orderID)
	}

	if err := s.targetRepo.SoftDeleteByOrderID(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete order targets: %w", err)
	}
	if err := s.orderRepo.SoftDeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if err := s.cache.DeleteOrderTree(ctx, orderID); err != nil {
		logger.Warnf("failed to clean up cache for deleted order %d: %v", orderID, err)
	}
	return nil
}

// ResetTarget 显式重置终态目标以便重新派发
// 终态目标不允许隐式重派,重置清空结果并回到Created,重试计数加一
func (s *ScanService) ResetTarget(ctx context.Context, caller Caller, targetID uint64) error {
	target, err := s.targetRepo.GetTargetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to load target: %w", err)
	}
	if target == nil {
		return fmt.Errorf("%w: target %d", ErrNotFound, targetID)
	}
	if err := s.authorizeTarget(caller, target); err != nil {
		return err
	}
	if !target.Status.IsTerminal() {
		return fmt.Errorf("%w: target %d is not terminal", ErrValidation, targetID)
	}

	if err := s.targetRepo.ResetTarget(ctx, targetID); err != nil {
		return fmt.Errorf("failed to reset target: %w", err)
	}
	if err := s.targetRepo.IncrementRetry(ctx, targetID); err != nil {
		logger.Warnf("failed to bump retry counter for target %d: %v", targetID, err)
	}
	return nil
}
