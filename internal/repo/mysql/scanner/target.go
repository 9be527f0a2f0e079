/**
 * 扫描仓库层:目标数据访问
 * @author: sun977
 * @date: 2025.11.20
 * @description: 扫描目标(Target)数据交互层(MySQL存储)
 * @func: 单纯数据访问,不应该包含业务逻辑
 * @note: 状态写入带单调性保护,不允许状态回退
 */
package scanner

import (
	"context"
	"errors"
	"time"

	scanModel "scanmaster/internal/model/scanner"

	"gorm.io/gorm"
)

// TargetRepository 扫描目标仓库接口
type TargetRepository interface {
	CreateTarget(ctx context.Context, target *scanModel.Target) error
	CreateTargets(ctx context.Context, targets []*scanModel.Target) error
	GetTargetByID(ctx context.Context, id uint64) (*scanModel.Target, error)
	GetTargetsByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Target, error)
	GetTargetsByOrderID(ctx context.Context, orderID uint64) ([]*scanModel.Target, error)
	GetPendingTargets(ctx context.Context, scanBy uint64, limit int) ([]*scanModel.Target, error)
	UpdateTargetStatus(ctx context.Context, id uint64, status scanModel.TargetStatus) error
	SaveScanResult(ctx context.Context, id uint64, rawResult string, status scanModel.TargetStatus, scanTime int) error
	SaveComposeResult(ctx context.Context, id uint64, composeResult string) error
	UpdatePDFPath(ctx context.Context, id uint64, pdfPath string) error
	IncrementRetry(ctx context.Context, id uint64) error
	ResetTarget(ctx context.Context, id uint64) error
	SoftDeleteTarget(ctx context.Context, id uint64) error
	SoftDeleteByOrderID(ctx context.Context, orderID uint64) error
}

type targetRepository struct {
	db *gorm.DB
}

// NewTargetRepository 创建目标仓库实例
func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{
		db: db,
	}
}

// CreateTarget 创建单个目标
func (r *targetRepository) CreateTarget(ctx context.Context, target *scanModel.Target) error {
	return r.db.WithContext(ctx).Create(target).Error
}

// CreateTargets 批量创建目标 [一个host按启用工具展开时使用]
func (r *targetRepository) CreateTargets(ctx context.Context, targets []*scanModel.Target) error {
	if len(targets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(targets).Error
}

// GetTargetByID 获取指定目标 [未找到返回nil,nil]
func (r *targetRepository) GetTargetByID(ctx context.Context, id uint64) (*scanModel.Target, error) {
	var target scanModel.Target
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &target, nil
}

// GetTargetsByIDs 批量获取目标
func (r *targetRepository) GetTargetsByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Target, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var targets []*scanModel.Target
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&targets).Error
	return targets, err
}

// GetTargetsByOrderID 获取批次下的全部目标
func (r *targetRepository) GetTargetsByOrderID(ctx context.Context, orderID uint64) ([]*scanModel.Target, error) {
	var targets []*scanModel.Target
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND deleted = ?", orderID, false).
		Order("id asc").
		Find(&targets).Error
	return targets, err
}

// GetPendingTargets 获取最早创建的待派发目标 [scanBy为0表示不限用户]
func (r *targetRepository) GetPendingTargets(ctx context.Context, scanBy uint64, limit int) ([]*scanModel.Target, error) {
	var targets []*scanModel.Target
	query := r.db.WithContext(ctx).
		Where("status = ? AND deleted = ?", scanModel.TargetCreated, false)
	if scanBy != 0 {
		query = query.Where("scan_by = ?", scanBy)
	}
	err := query.Order("created_at asc").Limit(limit).Find(&targets).Error
	return targets, err
}

// UpdateTargetStatus 更新目标状态
// 带单调性保护:只允许状态前进,不允许回退
func (r *targetRepository) UpdateTargetStatus(ctx context.Context, id uint64, status scanModel.TargetStatus) error {
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ? AND status <= ?", id, status).
		Update("status", status).Error
}

// SaveScanResult 写入扫描结果和终态 [Scan Job完成时调用]
func (r *targetRepository) SaveScanResult(ctx context.Context, id uint64, rawResult string, status scanModel.TargetStatus, scanTime int) error {
	now := time.Now()
	updates := map[string]interface{}{
		"raw_result":  rawResult,
		"status":      status,
		"scan_time":   scanTime,
		"finished_at": &now,
	}
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ? AND status <= ?", id, status).
		Updates(updates).Error
}

// SaveComposeResult 写入解析后的告警map [解析流水线memoization用]
func (r *targetRepository) SaveComposeResult(ctx context.Context, id uint64, composeResult string) error {
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ?", id).
		Update("compose_result", composeResult).Error
}

// UpdatePDFPath 更新报告文件路径 [报告重新生成时覆盖]
func (r *targetRepository) UpdatePDFPath(ctx context.Context, id uint64, pdfPath string) error {
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ?", id).
		Update("pdf_path", pdfPath).Error
}

// IncrementRetry 重试计数加一 [仅记录,重试由用户重新派发触发]
func (r *targetRepository) IncrementRetry(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ?", id).
		Update("retry", gorm.Expr("retry + 1")).Error
}

// ResetTarget 显式重置目标回Created,清空结果字段 [终态目标重派的唯一入口]
func (r *targetRepository) ResetTarget(ctx context.Context, id uint64) error {
	updates := map[string]interface{}{
		"status":         scanModel.TargetCreated,
		"raw_result":     "",
		"compose_result": "",
		"scan_time":      0,
		"started_at":     nil,
		"finished_at":    nil,
	}
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SoftDeleteTarget 软删除目标
func (r *targetRepository) SoftDeleteTarget(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}

// SoftDeleteByOrderID 级联软删除批次下全部目标
func (r *targetRepository) SoftDeleteByOrderID(ctx context.Context, orderID uint64) error {
	return r.db.WithContext(ctx).Model(&scanModel.Target{}).
		Where("order_id = ?", orderID).
		Update("deleted", true).Error
}
