/**
 * 扫描服务层:扫描任务执行
 * @author: sun977
 * @date: 2025.11.23
 * @description: worker池异步执行扫描任务,硬超时控制,结果落库并刷新缓存快照
 * @note: 工具崩溃/超时记为Terminated且不向派发调用方抛出,只能通过轮询/推送观察到
 */
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/logger"
)

// Job 一次扫描任务
// 携带派发时刻确定的全部上下文,worker不再回查派发方
type Job struct {
	TargetID      uint64        // 目标ID
	OrderID       uint64        // 批次ID
	ToolID        uint64        // 工具ID
	Deadline      time.Duration // 硬超时(tool.time_limit+附加时间)
	RequestUserID uint64        // 发起用户ID
	ClientID      uint64        // 所属客户ID
	IsBatch       bool          // 是否批量派发的一员
}

// workerPool 扫描worker池
// 任务队列满时submit直接失败,不阻塞派发调用方
type workerPool struct {
	service *ScanService
	jobs    chan Job
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

// newWorkerPool 创建worker池
func newWorkerPool(service *ScanService, workers, queueSize int) *workerPool {
	if workers <= 0 {
		workers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &workerPool{
		service: service,
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}
}

// start 启动全部worker协程
func (p *workerPool) start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					p.service.runJob(ctx, job)
				}
			}
		}()
	}
}

// submit 投递任务 [非阻塞,队列满返回ErrQueueFull]
func (p *workerPool) submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// stop 关闭队列并等待在途任务结束
func (p *workerPool) stop() {
	p.once.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

// runJob 执行一次扫描任务
// 状态机: Queued -> Running -> {Terminated, Finished}
func (s *ScanService) runJob(ctx context.Context, job Job) {
	target, err := s.targetRepo.GetTargetByID(ctx, job.TargetID)
	if err != nil || target == nil {
		logger.Warnf("scan job skipped: target %d unavailable: %v", job.TargetID, err)
		return
	}
	if target.Status.IsTerminal() {
		// 终态目标不允许重复执行
		logger.Warnf("scan job skipped: target %d already terminal", target.ID)
		return
	}

	tool, err := s.toolRepo.GetToolByID(ctx, job.ToolID)
	if err != nil || tool == nil {
		logger.Warnf("scan job skipped: tool %d unavailable: %v", job.ToolID, err)
		return
	}

	// 进入Running并刷新快照
	now := time.Now()
	if err := s.targetRepo.UpdateTargetStatus(ctx, target.ID, scanModel.TargetRunning); err != nil {
		logger.Warnf("failed to mark target %d running: %v", target.ID, err)
	}
	target.Status = scanModel.TargetRunning
	target.StartedAt = &now
	if err := s.writeTargetSnapshot(ctx, target, tool.TimeLimit); err != nil {
		logger.Warnf("failed to write snapshot for target %d: %v", target.ID, err)
	}
	logger.LogScanEvent(target.OrderID, target.ID, tool.ToolCmd, target.Host, "started", "", nil)

	// 硬超时执行工具命令
	command := s.buildCommand(tool, target.Host)
	jobCtx, cancel := context.WithTimeout(ctx, job.Deadline)
	defer cancel()

	started := time.Now()
	stdout, stderr, runErr := s.runner.Run(jobCtx, command)
	scanTime := int(time.Since(started).Seconds())

	status, rawResult := decideOutcome(stdout, stderr, runErr, job.Deadline)

	if err := s.targetRepo.SaveScanResult(ctx, target.ID, rawResult, status, scanTime); err != nil {
		logger.Warnf("failed to persist scan result for target %d: %v", target.ID, err)
	}
	target.Status = status
	target.ScanTime = scanTime
	if err := s.writeTargetSnapshot(ctx, target, tool.TimeLimit); err != nil {
		logger.Warnf("failed to write snapshot for target %d: %v", target.ID, err)
	}

	logger.LogScanEvent(target.OrderID, target.ID, tool.ToolCmd, target.Host, status.String(), "", map[string]interface{}{
		"scan_time": scanTime,
	})

	// 批次汇总重算,终态时顺带清理缓存
	if _, err := s.RecomputeOrderRollup(ctx, target.OrderID); err != nil {
		logger.Warnf("failed to recompute rollup for order %d: %v", target.OrderID, err)
	}
}

// buildCommand 构建最终执行的shell命令 [需要sudo的工具注入密码前缀]
func (s *ScanService) buildCommand(tool *scanModel.Tool, host string) string {
	command := tool.BuildCommand(host)
	if tool.Sudo && s.cfg.SudoPassword != "" {
		command = fmt.Sprintf("echo '%s' | sudo -S %s", s.cfg.SudoPassword, command)
	}
	return command
}

// decideOutcome 判定任务结果
// 超时 => Terminated并保留诊断文本;进程报错 => Terminated;
// 只有stderr没有stdout => Terminated;否则Finished,原始输出原样保留
func decideOutcome(stdout, stderr string, runErr error, deadline time.Duration) (scanModel.TargetStatus, string) {
	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			diagnostic := fmt.Sprintf("scan terminated: exceeded time limit of %s", deadline)
			if stderr != "" {
				diagnostic += "\n" + stderr
			}
			return scanModel.TargetTerminated, diagnostic
		}
		diagnostic := fmt.Sprintf("scan terminated: %v", runErr)
		if stderr != "" {
			diagnostic += "\n" + stderr
		}
		return scanModel.TargetTerminated, diagnostic
	}

	if strings.TrimSpace(stdout) == "" && strings.TrimSpace(stderr) != "" {
		return scanModel.TargetTerminated, stderr
	}

	return scanModel.TargetFinished, stdout
}
