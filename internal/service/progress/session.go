/**
 * 进度服务层:会话与百分比计算
 * @author: sun977
 * @date: 2025.11.23
 * @description: 单个watch会话的轮询循环与会话内单调百分比时钟
 * @note: 百分比以会话首次观察到Running的时刻起算,不同会话可能看到不同百分比
 */
package progress

import (
	"context"
	"time"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/logger"
)

// percentClock 会话内的进度时钟
// 每个目标从会话首次观察到Running起计时,时钟从不回拨,百分比单调不减
type percentClock struct {
	svc          *ProgressService
	graceSeconds int
	started      map[uint64]time.Time // targetID -> 首次观察到Running的时刻
	last         map[uint64]float64   // targetID -> 上次推送的百分比
}

func newPercentClock(svc *ProgressService) *percentClock {
	return &percentClock{
		svc:          svc,
		graceSeconds: svc.cfg.GraceSeconds,
		started:      make(map[uint64]time.Time),
		last:         make(map[uint64]float64),
	}
}

// percentFor 计算目标的当前完成百分比
// 终态直接100;Running按耗时占 time_limit+grace 的比例;未开始为0
func (c *percentClock) percentFor(snap *scanModel.TargetSnapshot) float64 {
	var percent float64
	switch {
	case snap.Status.IsTerminal():
		percent = 100
	case snap.Status == scanModel.TargetRunning:
		startedAt, ok := c.started[snap.ID]
		if !ok {
			startedAt = c.svc.clock()
			c.started[snap.ID] = startedAt
		}
		window := float64(snap.TimeLimit + c.graceSeconds)
		if window <= 0 {
			window = 1
		}
		elapsed := c.svc.clock().Sub(startedAt).Seconds()
		percent = elapsed * 100 / window
		if percent > 100 {
			percent = 100
		}
	default:
		percent = 0
	}

	// 会话内单调不减
	if prev, ok := c.last[snap.ID]; ok && percent < prev {
		percent = prev
	}
	c.last[snap.ID] = percent
	return percent
}

// orderSession 批次进度会话
type orderSession struct {
	svc        *ProgressService
	orderID    uint64
	recipients []uint64
	clock      *percentClock
}

func newOrderSession(svc *ProgressService, orderID uint64, recipients []uint64) *orderSession {
	return &orderSession{
		svc:        svc,
		orderID:    orderID,
		recipients: recipients,
		clock:      newPercentClock(svc),
	}
}

// run 轮询循环:读快照→算百分比→推送→终态或键消失时退出
func (s *orderSession) run(ctx context.Context) {
	logger.LogProgressEvent(s.orderID, "session_start", "order progress session started", nil)
	for {
		order, targets, err := s.svc.cache.GetOrderTargets(ctx, s.orderID)
		if err != nil {
			logger.LogProgressEvent(s.orderID, "session_error", err.Error(), nil)
			return
		}
		if order == nil {
			// 键已被清理,扫描早已结束
			logger.LogProgressEvent(s.orderID, "session_end", "order snapshot gone, stopping", nil)
			return
		}

		var sum float64
		for _, t := range targets {
			t.Percent = s.clock.percentFor(t)
			sum += t.Percent
		}
		if len(targets) > 0 {
			order.Percent = sum / float64(len(targets))
		}

		// 子状态可能已领先于缓存里的汇总值,重算并持久化
		statuses := make([]scanModel.TargetStatus, 0, len(targets))
		for _, t := range targets {
			statuses = append(statuses, t.Status)
		}
		rollup := scanModel.RollupStatus(statuses)
		if rollup != order.Status {
			if recomputed, rerr := s.svc.recomputer.RecomputeOrderRollup(ctx, s.orderID); rerr == nil {
				rollup = recomputed
			} else {
				logger.LogProgressEvent(s.orderID, "rollup_failed", rerr.Error(), nil)
			}
			order.Status = rollup
		}

		if rollup.IsTerminal() {
			order.Percent = 100
			for _, t := range targets {
				t.Percent = 100
			}
		}

		s.publish(ctx, order, targets)

		if rollup.IsTerminal() {
			// 重算路径已经清理过缓存树,这里兜底幂等删除
			if err := s.svc.cache.DeleteOrderTree(ctx, s.orderID); err != nil {
				logger.LogProgressEvent(s.orderID, "cleanup_failed", err.Error(), nil)
			}
			logger.LogProgressEvent(s.orderID, "session_end", "order reached terminal rollup", nil)
			return
		}

		if !s.svc.sleep(ctx) {
			return
		}
	}
}

// publish 推送当前进度到全部接收者
func (s *orderSession) publish(ctx context.Context, order *scanModel.OrderSnapshot, targets []*scanModel.TargetSnapshot) {
	update := &ProgressUpdate{Order: order, Targets: targets}
	if err := s.svc.publisher.Send(ctx, s.recipients, update); err != nil {
		logger.LogProgressEvent(s.orderID, "publish_failed", err.Error(), nil)
	}
}

// targetSession 单目标进度会话
type targetSession struct {
	svc        *ProgressService
	targetID   uint64
	recipients []uint64
	clock      *percentClock
}

func newTargetSession(svc *ProgressService, targetID uint64, recipients []uint64) *targetSession {
	return &targetSession{
		svc:        svc,
		targetID:   targetID,
		recipients: recipients,
		clock:      newPercentClock(svc),
	}
}

// run 轮询循环:目标到终态时额外重算一次父批次汇总再退出
func (s *targetSession) run(ctx context.Context) {
	for {
		snap, err := s.svc.cache.GetTarget(ctx, s.targetID)
		if err != nil {
			return
		}
		if snap == nil {
			return
		}

		snap.Percent = s.clock.percentFor(snap)
		update := &ProgressUpdate{Target: snap}
		if err := s.svc.publisher.Send(ctx, s.recipients, update); err != nil {
			logger.LogProgressEvent(snap.OrderID, "publish_failed", err.Error(), nil)
		}

		if snap.Status.IsTerminal() {
			// 父批次可能因此到达终态,重算一次(终态时重算路径会清理缓存树)
			if _, rerr := s.svc.recomputer.RecomputeOrderRollup(ctx, snap.OrderID); rerr != nil {
				logger.LogProgressEvent(snap.OrderID, "rollup_failed", rerr.Error(), nil)
			}
			return
		}

		if !s.svc.sleep(ctx) {
			return
		}
	}
}
