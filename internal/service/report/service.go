/**
 * 报告服务层:生成入口
 * @author: sun977
 * @date: 2025.11.23
 * @description: 单目标/整批次两种报告,汇编告警数据后渲染PDF并把文件路径写回实体行
 * @note: 渲染失败只返回error,已落库的解析结果不受影响;重新生成时删除旧PDF文件
 */
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scanmaster/internal/config"
	"scanmaster/internal/pkg/logger"
	pdfreport "scanmaster/internal/pkg/report"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
)

// ReportService 报告生成服务
type ReportService struct {
	targetRepo scanRepo.TargetRepository
	orderRepo  scanRepo.OrderRepository
	composer   *Composer
	renderer   *pdfreport.PDFRenderer
	cfg        *config.ReportConfig
}

// NewReportService 创建报告服务实例
func NewReportService(
	targetRepo scanRepo.TargetRepository,
	orderRepo scanRepo.OrderRepository,
	composer *Composer,
	renderer *pdfreport.PDFRenderer,
	cfg *config.ReportConfig,
) *ReportService {
	return &ReportService{
		targetRepo: targetRepo,
		orderRepo:  orderRepo,
		composer:   composer,
		renderer:   renderer,
		cfg:        cfg,
	}
}

// GenerateTargetReport 生成单目标报告,返回PDF相对路径
func (s *ReportService) GenerateTargetReport(ctx context.Context, userID, targetID uint64, regenerate bool) (string, error) {
	target, err := s.targetRepo.GetTargetByID(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("failed to load target: %w", err)
	}
	if target == nil {
		return "", fmt.Errorf("target %d not found", targetID)
	}

	if !regenerate && target.PDFPath != "" {
		return target.PDFPath, nil
	}

	data, err := s.composer.Compose(ctx, target.Host, target.OrderID, []uint64{target.ID}, regenerate)
	if err != nil {
		return "", err
	}

	subDir := filepath.Join(fmt.Sprintf("%d", userID), fmt.Sprintf("%d", target.OrderID), fmt.Sprintf("%d", target.ID))
	path, err := s.render(data, subDir, target.PDFPath)
	if err != nil {
		return "", err
	}
	if err := s.targetRepo.UpdatePDFPath(ctx, target.ID, path); err != nil {
		return "", fmt.Errorf("failed to persist report path: %w", err)
	}

	logger.LogReportEvent(target.ID, path, "target_report_generated", "pdf report written", map[string]interface{}{
		"alerts": data.AlertCount,
	})
	return path, nil
}

// GenerateOrderReport 生成整批次报告,跨全部子目标合并告警
func (s *ReportService) GenerateOrderReport(ctx context.Context, userID, orderID uint64, regenerate bool) (string, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return "", fmt.Errorf("order %d not found", orderID)
	}

	if !regenerate && order.PDFPath != "" {
		return order.PDFPath, nil
	}

	targets, err := s.targetRepo.GetTargetsByOrderID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to load order targets: %w", err)
	}
	targetIDs := make([]uint64, 0, len(targets))
	for _, t := range targets {
		targetIDs = append(targetIDs, t.ID)
	}

	data, err := s.composer.Compose(ctx, order.TargetIP, orderID, targetIDs, regenerate)
	if err != nil {
		return "", err
	}

	subDir := filepath.Join(fmt.Sprintf("%d", userID), fmt.Sprintf("%d", orderID))
	path, err := s.render(data, subDir, order.PDFPath)
	if err != nil {
		return "", err
	}
	if err := s.orderRepo.UpdatePDFPath(ctx, orderID, path); err != nil {
		return "", fmt.Errorf("failed to persist report path: %w", err)
	}

	logger.LogReportEvent(orderID, path, "order_report_generated", "pdf report written", map[string]interface{}{
		"targets": len(targetIDs),
		"alerts":  data.AlertCount,
	})
	return path, nil
}

// render 渲染PDF并清理旧文件
func (s *ReportService) render(data *ReportData, subDir, oldPath string) (string, error) {
	renderData := &pdfreport.Data{
		Host:        data.Host,
		CompanyName: s.cfg.CompanyName,
		GeneratedAt: time.Now(),
		Alerts:      data.Alerts,
		RiskLevels:  data.RiskLevels,
	}
	path, err := s.renderer.Render(renderData, subDir)
	if err != nil {
		return "", fmt.Errorf("failed to render pdf report: %w", err)
	}

	// 旧文件留着没有引用,尽力删除
	if oldPath != "" && oldPath != path {
		if rmErr := os.Remove(filepath.Join(s.cfg.OutputDir, oldPath)); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warnf("failed to remove stale report file %s: %v", oldPath, rmErr)
		}
	}
	return path, nil
}
