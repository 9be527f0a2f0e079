/**
 * 解析流水线:服务入口
 * @author: sun977
 * @date: 2025.11.23
 * @description: 把扫描原始输出解析为规范化告警集合,结果缓存在目标行上
 * @func:
 *   1. ComposeTarget: 单目标解析,memoization + 并发探测fan-in
 *   2. ComposeTargets: 批量解析,用于订单级报告
 */
package compose

import (
	"context"
	"fmt"
	"sync"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/cvedb"
	"scanmaster/internal/pkg/logger"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
)

// ComposeService 原始扫描输出到告警集合的解析服务
type ComposeService struct {
	targetRepo scanRepo.TargetRepository
	toolRepo   scanRepo.ToolRepository
	registry   *Registry
	builder    *alertBuilder
	parallel   int // 单处理器内并发探测上限
}

// NewComposeService 创建解析服务实例
func NewComposeService(
	targetRepo scanRepo.TargetRepository,
	toolRepo scanRepo.ToolRepository,
	cveClient cvedb.Client,
	parallel int,
) *ComposeService {
	if parallel <= 0 {
		parallel = 4
	}
	builder := newAlertBuilder(cveClient)
	return &ComposeService{
		targetRepo: targetRepo,
		toolRepo:   toolRepo,
		registry:   buildRegistry(builder),
		builder:    builder,
		parallel:   parallel,
	}
}

// ComposeTarget 解析单个目标的扫描输出
// regenerate=false且已有解析缓存时直接返回缓存,不再跑探测函数
func (s *ComposeService) ComposeTarget(ctx context.Context, targetID uint64, regenerate bool) (scanModel.AlertMap, error) {
	target, err := s.targetRepo.GetTargetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("target %d not found", targetID)
	}

	tool, err := s.toolRepo.GetToolByID(ctx, target.ToolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool: %w", err)
	}
	if tool == nil {
		return nil, fmt.Errorf("tool %d not found for target %d", target.ToolID, targetID)
	}

	if !regenerate && target.HasComposeResult() {
		cached, decodeErr := scanModel.DecodeAlertMap(target.ComposeResult)
		if decodeErr == nil {
			logger.LogComposeEvent(target.ID, tool.ToolCmd, "cache_hit", "returning memoized compose result", nil)
			return cached, nil
		}
		// 缓存损坏时重算
		logger.LogComposeEvent(target.ID, tool.ToolCmd, "cache_corrupt", decodeErr.Error(), nil)
	}

	handler := s.registry.Lookup(tool.ToolCmd)
	merged := s.runDetectors(ctx, handler, &Input{
		Target: target,
		Tool:   tool,
		Raw:    target.RawResult,
	})

	encoded, err := merged.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode compose result: %w", err)
	}
	if err := s.targetRepo.SaveComposeResult(ctx, target.ID, encoded); err != nil {
		return nil, fmt.Errorf("failed to save compose result: %w", err)
	}

	logger.LogComposeEvent(target.ID, tool.ToolCmd, "composed", "compose result generated", map[string]interface{}{
		"handler": handler.Name,
		"alerts":  len(merged),
	})
	return merged, nil
}

// ComposeTargets 批量解析多个目标并合并告警 [订单级报告用]
// 单个目标解析失败记日志后跳过,不中断兄弟目标
func (s *ComposeService) ComposeTargets(ctx context.Context, targetIDs []uint64, regenerate bool) (scanModel.AlertMap, error) {
	merged := make(scanModel.AlertMap)
	for _, id := range targetIDs {
		partial, err := s.ComposeTarget(ctx, id, regenerate)
		if err != nil {
			logger.LogComposeEvent(id, "", "compose_failed", err.Error(), nil)
			continue
		}
		merged.MergeFrom(partial)
	}
	return merged, nil
}

// runDetectors 并发执行处理器的全部探测函数并fan-in合并
// 单个探测函数出错或panic只丢弃自己的部分结果,不影响兄弟探测
func (s *ComposeService) runDetectors(ctx context.Context, handler *Handler, in *Input) scanModel.AlertMap {
	partials := make([]scanModel.AlertMap, len(handler.Detectors))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.parallel)
	for i, detector := range handler.Detectors {
		wg.Add(1)
		go func(idx int, detect Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.LogComposeEvent(in.Target.ID, in.Tool.ToolCmd, "detector_panic",
						fmt.Sprintf("detector %d panicked: %v", idx, r), nil)
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()

			partial, err := detect(ctx, in)
			if err != nil {
				logger.LogComposeEvent(in.Target.ID, in.Tool.ToolCmd, "detector_failed",
					fmt.Sprintf("detector %d: %v", idx, err), nil)
				return
			}
			partials[idx] = partial
		}(i, detector)
	}
	wg.Wait()

	// 按探测函数注册顺序合并,保证结果确定
	merged := make(scanModel.AlertMap)
	for _, partial := range partials {
		if partial != nil {
			merged.MergeFrom(partial)
		}
	}
	return merged
}
