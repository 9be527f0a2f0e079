/**
 * 进度服务层:流式推送装配
 * @author: sun977
 * @date: 2025.11.23
 * @description: 为每个watch请求起后台会话goroutine,周期性读缓存快照并推送进度
 * @note: 推送是尽力而为:会话只依赖缓存快照,键消失即视为扫描结束并退出
 */
package progress

import (
	"context"
	"sync"
	"time"

	"scanmaster/internal/config"
	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/pubsub"
	"scanmaster/internal/repo/cache"
)

// OrderRecomputer 批次汇总状态的重算委托
// 由扫描服务实现:重算会持久化到数据库与缓存,终态时顺带清理缓存树
type OrderRecomputer interface {
	RecomputeOrderRollup(ctx context.Context, orderID uint64) (scanModel.OrderStatus, error)
}

// ProgressService 扫描进度流式推送服务
type ProgressService struct {
	cache      *cache.ProgressCache
	publisher  pubsub.Publisher
	recomputer OrderRecomputer
	cfg        *config.ScanConfig

	clock func() time.Time // 注入的时钟,测试用
	wg    sync.WaitGroup
}

// NewProgressService 创建进度服务实例
func NewProgressService(
	progressCache *cache.ProgressCache,
	publisher pubsub.Publisher,
	recomputer OrderRecomputer,
	cfg *config.ScanConfig,
) *ProgressService {
	return &ProgressService{
		cache:      progressCache,
		publisher:  publisher,
		recomputer: recomputer,
		cfg:        cfg,
		clock:      time.Now,
	}
}

// ProgressUpdate 推送到通知通道的进度载荷
type ProgressUpdate struct {
	Order   *scanModel.OrderSnapshot    `json:"order,omitempty"`
	Targets []*scanModel.TargetSnapshot `json:"targets,omitempty"`
	Target  *scanModel.TargetSnapshot   `json:"target,omitempty"`
}

// WatchOrder 启动批次进度会话 [fire-and-forget]
// recipients 为接收推送的用户ID列表(批次所属客户与发起人)
func (s *ProgressService) WatchOrder(ctx context.Context, orderID uint64, recipients []uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		newOrderSession(s, orderID, recipients).run(ctx)
	}()
}

// WatchTarget 启动单目标进度会话 [fire-and-forget]
func (s *ProgressService) WatchTarget(ctx context.Context, targetID uint64, recipients []uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		newTargetSession(s, targetID, recipients).run(ctx)
	}()
}

// Wait 等待所有在途会话退出 [优雅停机用]
func (s *ProgressService) Wait() {
	s.wg.Wait()
}

// interval 推送周期
func (s *ProgressService) interval() time.Duration {
	if s.cfg.StreamInterval > 0 {
		return s.cfg.StreamInterval
	}
	return 3 * time.Second
}

// sleep 等待一个推送周期,ctx取消时提前返回false
func (s *ProgressService) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.interval())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
