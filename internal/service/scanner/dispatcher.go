/**
 * 扫描服务层:任务派发
 * @author: sun977
 * @date: 2025.11.23
 * @description: 按目标ID列表/批次ID/排队数量派发扫描任务
 * @note: 显式ID列表是全有或全无;按数量/按批次允许部分成功,跳过不存在的个体
 */
package scanner

import (
	"context"
	"fmt"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/logger"
)

// Caller 派发调用方身份
// 权限校验已在API边界完成认证,这里只做所有权判定
type Caller struct {
	UserID     uint64 // 发起用户ID
	ClientID   uint64 // 所属客户ID
	Privileged bool   // 是否有越权派发权限(staff)
}

// DispatchResult 派发结果
// 部分成功语义下Skipped记录每个被跳过的ID及原因
type DispatchResult struct {
	Dispatched []uint64          // 成功入队的目标ID
	Skipped    map[uint64]string // 被跳过的目标ID及原因
}

// newDispatchResult 创建空派发结果
func newDispatchResult() *DispatchResult {
	return &DispatchResult{
		Dispatched: make([]uint64, 0, 8),
		Skipped:    make(map[uint64]string),
	}
}

// DispatchByIDs 按显式目标ID列表派发 [全有或全无]
// 任一ID不存在返回ErrNotFound,任一目标已到终态返回ErrValidation,
// 任一目标不属于调用方且调用方无越权权限返回ErrForbidden;以上任何失败都不入队任何任务
func (s *ScanService) DispatchByIDs(ctx context.Context, caller Caller, targetIDs []uint64) (*DispatchResult, error) {
	if len(targetIDs) == 0 {
		return nil, fmt.Errorf("%w: empty target id list", ErrValidation)
	}

	targets, err := s.targetRepo.GetTargetsByIDs(ctx, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}

	// 显式ID列表要求全部存在
	if len(targets) != len(targetIDs) {
		found := make(map[uint64]struct{}, len(targets))
		for _, t := range targets {
			found[t.ID] = struct{}{}
		}
		for _, id := range targetIDs {
			if _, ok := found[id]; !ok {
				return nil, fmt.Errorf("%w: target %d", ErrNotFound, id)
			}
		}
	}

	// 先整体校验,再整体入队
	for _, t := range targets {
		if err := s.authorizeTarget(caller, t); err != nil {
			return nil, err
		}
		if t.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: target %d is already terminal", ErrValidation, t.ID)
		}
	}

	result := newDispatchResult()
	for _, t := range targets {
		if err := s.enqueueTarget(ctx, caller, t, len(targetIDs) > 1); err != nil {
			// 校验已通过,入队失败属于基础设施错误,中止剩余派发
			return result, err
		}
		result.Dispatched = append(result.Dispatched, t.ID)
	}

	s.refreshDispatchedOrders(ctx, targets)
	return result, nil
}

// DispatchByOrders 按批次ID列表派发 [部分成功]
// 不存在的批次ID跳过并记录原因;所有权校验仍是整体性的:任一批次越权即整体拒绝
func (s *ScanService) DispatchByOrders(ctx context.Context, caller Caller, orderIDs []uint64) (*DispatchResult, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: empty order id list", ErrValidation)
	}

	orders, err := s.orderRepo.GetOrdersByIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	// 所有权是整体校验,无部分执行
	for _, o := range orders {
		if !caller.Privileged && o.Client != caller.ClientID {
			return nil, fmt.Errorf("%w: order %d", ErrForbidden, o.ID)
		}
	}

	result := newDispatchResult()
	found := make(map[uint64]*scanModel.Order, len(orders))
	for _, o := range orders {
		found[o.ID] = o
	}

	var dispatchedTargets []*scanModel.Target
	for _, orderID := range orderIDs {
		order, ok := found[orderID]
		if !ok {
			result.Skipped[orderID] = "order not found"
			continue
		}

		targets, err := s.targetRepo.GetTargetsByOrderID(ctx, order.ID)
		if err != nil {
			return result, fmt.Errorf("failed to load order targets: %w", err)
		}

		for _, t := range targets {
			if t.Status.IsTerminal() {
				result.Skipped[t.ID] = "target already terminal"
				continue
			}
			if err := s.enqueueTarget(ctx, caller, t, true); err != nil {
				return result, err
			}
			result.Dispatched = append(result.Dispatched, t.ID)
			dispatchedTargets = append(dispatchedTargets, t)
		}
	}

	s.refreshDispatchedOrders(ctx, dispatchedTargets)
	return result, nil
}

// DispatchByCount 派发最早创建的N个待扫描目标 [部分成功]
// 非特权调用方只取自己的目标;竞争导致的个体失败跳过并记录
func (s *ScanService) DispatchByCount(ctx context.Context, caller Caller, count int) (*DispatchResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrValidation)
	}

	scanBy := caller.UserID
	if caller.Privileged {
		scanBy = 0 // 不限用户
	}

	targets, err := s.targetRepo.GetPendingTargets(ctx, scanBy, count)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending targets: %w", err)
	}

	result := newDispatchResult()
	var dispatchedTargets []*scanModel.Target
	for _, t := range targets {
		if err := s.enqueueTarget(ctx, caller, t, true); err != nil {
			result.Skipped[t.ID] = err.Error()
			continue
		}
		result.Dispatched = append(result.Dispatched, t.ID)
		dispatchedTargets = append(dispatchedTargets, t)
	}

	s.refreshDispatchedOrders(ctx, dispatchedTargets)
	return result, nil
}

// authorizeTarget 目标所有权判定
func (s *ScanService) authorizeTarget(caller Caller, target *scanModel.Target) error {
	if caller.Privileged {
		return nil
	}
	if target.ScanBy != caller.UserID {
		return fmt.Errorf("%w: target %d", ErrForbidden, target.ID)
	}
	return nil
}

// enqueueTarget 单目标入队:置Queued状态,写缓存快照,投递任务
func (s *ScanService) enqueueTarget(ctx context.Context, caller Caller, target *scanModel.Target, isBatch bool) error {
	tool, err := s.toolRepo.GetToolByID(ctx, target.ToolID)
	if err != nil {
		return fmt.Errorf("failed to load tool: %w", err)
	}
	if tool == nil {
		return fmt.Errorf("%w: tool %d", ErrNotFound, target.ToolID)
	}

	if err := s.targetRepo.UpdateTargetStatus(ctx, target.ID, scanModel.TargetQueued); err != nil {
		return fmt.Errorf("failed to mark target queued: %w", err)
	}
	target.Status = scanModel.TargetQueued

	if err := s.writeTargetSnapshot(ctx, target, tool.TimeLimit); err != nil {
		logger.Warnf("failed to write snapshot for target %d: %v", target.ID, err)
	}

	job := Job{
		TargetID:      target.ID,
		OrderID:       target.OrderID,
		ToolID:        tool.ID,
		Deadline:      s.cfg.JobDeadline(tool.TimeLimit),
		RequestUserID: caller.UserID,
		ClientID:      caller.ClientID,
		IsBatch:       isBatch,
	}
	if err := s.pool.submit(job); err != nil {
		return err
	}

	logger.LogScanEvent(target.OrderID, target.ID, tool.ToolCmd, target.Host, "dispatched", "", nil)
	return nil
}

// refreshDispatchedOrders 派发后为涉及的每个批次重算汇总并刷新批次快照
func (s *ScanService) refreshDispatchedOrders(ctx context.Context, targets []*scanModel.Target) {
	seen := make(map[uint64]struct{}, 4)
	for _, t := range targets {
		if _, ok := seen[t.OrderID]; ok {
			continue
		}
		seen[t.OrderID] = struct{}{}

		order, err := s.orderRepo.GetOrderByID(ctx, t.OrderID)
		if err != nil || order == nil {
			logger.Warnf("failed to load order %d after dispatch: %v", t.OrderID, err)
			continue
		}

		children, err := s.targetRepo.GetTargetsByOrderID(ctx, order.ID)
		if err != nil {
			logger.Warnf("failed to load targets of order %d after dispatch: %v", order.ID, err)
			continue
		}
		childIDs := make([]uint64, 0, len(children))
		statuses := make([]scanModel.TargetStatus, 0, len(children))
		for _, c := range children {
			childIDs = append(childIDs, c.ID)
			statuses = append(statuses, c.Status)
		}

		order.Status = scanModel.RollupStatus(statuses)
		if err := s.orderRepo.UpdateOrderStatus(ctx, order.ID, order.Status); err != nil {
			logger.Warnf("failed to persist rollup for order %d: %v", order.ID, err)
		}
		if err := s.writeOrderSnapshot(ctx, order, childIDs); err != nil {
			logger.Warnf("failed to write snapshot for order %d: %v", order.ID, err)
		}
	}
}
