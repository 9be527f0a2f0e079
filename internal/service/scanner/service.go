/**
 * 扫描服务层:服务装配
 * @author: sun977
 * @date: 2025.11.23
 * @description: 扫描派发与执行服务的依赖装配和快照写入
 */
package scanner

import (
	"context"
	"fmt"

	"scanmaster/internal/config"
	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/repo/cache"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
)

// ScanService 扫描派发与执行服务
// 派发是fire-and-forget:调用方在任务入队后即返回,不等待执行结束
type ScanService struct {
	targetRepo scanRepo.TargetRepository
	orderRepo  scanRepo.OrderRepository
	toolRepo   scanRepo.ToolRepository
	cache      *cache.ProgressCache
	runner     CommandRunner
	cfg        *config.ScanConfig
	pool       *workerPool
}

// NewScanService 创建扫描服务实例
func NewScanService(
	targetRepo scanRepo.TargetRepository,
	orderRepo scanRepo.OrderRepository,
	toolRepo scanRepo.ToolRepository,
	progressCache *cache.ProgressCache,
	runner CommandRunner,
	cfg *config.ScanConfig,
) *ScanService {
	s := &ScanService{
		targetRepo: targetRepo,
		orderRepo:  orderRepo,
		toolRepo:   toolRepo,
		cache:      progressCache,
		runner:     runner,
		cfg:        cfg,
	}
	s.pool = newWorkerPool(s, cfg.Workers, cfg.QueueSize)
	return s
}

// Start 启动扫描worker池
func (s *ScanService) Start(ctx context.Context) {
	s.pool.start(ctx)
}

// Stop 停止worker池并等待在途任务结束
func (s *ScanService) Stop() {
	s.pool.stop()
}

// writeTargetSnapshot 将目标当前状态写入缓存 [整快照覆盖写]
func (s *ScanService) writeTargetSnapshot(ctx context.Context, target *scanModel.Target, timeLimit int) error {
	snap := scanModel.NewTargetSnapshot(target, timeLimit)
	if err := s.cache.SetTarget(ctx, snap); err != nil {
		return fmt.Errorf("failed to write target snapshot: %w", err)
	}
	return nil
}

// writeOrderSnapshot 将批次当前状态写入缓存
func (s *ScanService) writeOrderSnapshot(ctx context.Context, order *scanModel.Order, targetIDs []uint64) error {
	snap := scanModel.NewOrderSnapshot(order, targetIDs)
	if err := s.cache.SetOrder(ctx, snap); err != nil {
		return fmt.Errorf("failed to write order snapshot: %w", err)
	}
	return nil
}
