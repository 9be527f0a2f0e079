/**
 * 扫描仓库层:工具配置数据访问
 * @author: sun977
 * @date: 2025.11.20
 * @description: 扫描工具(Tool)配置数据交互层(MySQL存储)
 * @func: 单纯数据访问,不应该包含业务逻辑
 * @note: 工具配置在扫描期间只读
 */
package scanner

import (
	"context"
	"errors"

	scanModel "scanmaster/internal/model/scanner"

	"gorm.io/gorm"
)

// ToolRepository 扫描工具仓库接口
type ToolRepository interface {
	CreateTool(ctx context.Context, tool *scanModel.Tool) error
	GetToolByID(ctx context.Context, id uint64) (*scanModel.Tool, error)
	GetToolsByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Tool, error)
	GetToolByCmd(ctx context.Context, toolCmd string) (*scanModel.Tool, error)
	ListActiveTools(ctx context.Context, maxTier int) ([]*scanModel.Tool, error)
	SoftDeleteTool(ctx context.Context, id uint64) error
}

type toolRepository struct {
	db *gorm.DB
}

// NewToolRepository 创建工具仓库实例
func NewToolRepository(db *gorm.DB) ToolRepository {
	return &toolRepository{
		db: db,
	}
}

// CreateTool 创建工具配置
func (r *toolRepository) CreateTool(ctx context.Context, tool *scanModel.Tool) error {
	return r.db.WithContext(ctx).Create(tool).Error
}

// GetToolByID 获取指定工具 [未找到返回nil,nil]
func (r *toolRepository) GetToolByID(ctx context.Context, id uint64) (*scanModel.Tool, error) {
	var tool scanModel.Tool
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&tool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tool, nil
}

// GetToolsByIDs 批量获取工具
func (r *toolRepository) GetToolsByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Tool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tools []*scanModel.Tool
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&tools).Error
	return tools, err
}

// GetToolByCmd 按命令标识获取工具 [handler路由键]
func (r *toolRepository) GetToolByCmd(ctx context.Context, toolCmd string) (*scanModel.Tool, error) {
	var tool scanModel.Tool
	err := r.db.WithContext(ctx).
		Where("tool_cmd = ? AND deleted = ?", toolCmd, false).
		First(&tool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tool, nil
}

// ListActiveTools 列出指定订阅等级内的全部可用工具 [maxTier<0 时不做等级过滤]
func (r *toolRepository) ListActiveTools(ctx context.Context, maxTier int) ([]*scanModel.Tool, error) {
	query := r.db.WithContext(ctx).Where("deleted = ?", false)
	if maxTier >= 0 {
		query = query.Where("tier <= ?", maxTier)
	}
	var tools []*scanModel.Tool
	err := query.Order("id asc").Find(&tools).Error
	return tools, err
}

// SoftDeleteTool 软删除工具
func (r *toolRepository) SoftDeleteTool(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&scanModel.Tool{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}
