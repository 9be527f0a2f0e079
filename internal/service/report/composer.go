/**
 * 报告服务层:数据汇编
 * @author: sun977
 * @date: 2025.11.23
 * @description: 跨工具合并多个目标的告警集合,统计风险级别分布,按严重度排序供渲染层消费
 */
package report

import (
	"context"
	"fmt"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/service/compose"
)

// ReportData 渲染层的输入
type ReportData struct {
	Host       string              // 扫描主机
	OrderID    uint64              // 批次ID(单目标报告时为目标所属批次)
	Alerts     []*scanModel.Alert  // 按alert_order升序(更严重在前)
	RiskLevels map[string]int      // 规范化严重级别 -> 告警条数
	AlertCount int                 // 告警总数
}

// Composer 报告数据汇编器
type Composer struct {
	compose *compose.ComposeService
}

// NewComposer 创建汇编器实例
func NewComposer(composeService *compose.ComposeService) *Composer {
	return &Composer{compose: composeService}
}

// Compose 汇编一组目标的报告数据
// 调用解析流水线取各目标告警并跨工具合并,同标题告警instances累加
func (c *Composer) Compose(ctx context.Context, host string, orderID uint64, targetIDs []uint64, regenerate bool) (*ReportData, error) {
	merged, err := c.compose.ComposeTargets(ctx, targetIDs, regenerate)
	if err != nil {
		return nil, fmt.Errorf("failed to compose report data: %w", err)
	}

	riskLevels := map[string]int{
		scanModel.SeverityCritical:      0,
		scanModel.SeverityHigh:          0,
		scanModel.SeverityMedium:        0,
		scanModel.SeverityLow:           0,
		scanModel.SeverityInfo:          0,
		scanModel.SeverityFalsePositive: 0,
	}
	alerts := merged.SortedAlerts()
	for _, alert := range alerts {
		riskLevels[alert.Complexity]++
	}

	return &ReportData{
		Host:       host,
		OrderID:    orderID,
		Alerts:     alerts,
		RiskLevels: riskLevels,
		AlertCount: len(alerts),
	}, nil
}
