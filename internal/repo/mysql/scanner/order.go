/**
 * 扫描仓库层:批次数据访问
 * @author: sun977
 * @date: 2025.11.20
 * @description: 扫描批次(Order)数据交互层(MySQL存储)
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package scanner

import (
	"context"
	"errors"

	scanModel "scanmaster/internal/model/scanner"

	"gorm.io/gorm"
)

// OrderRepository 扫描批次仓库接口
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *scanModel.Order) error
	GetOrderByID(ctx context.Context, id uint64) (*scanModel.Order, error)
	GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Order, error)
	GetOrdersByClient(ctx context.Context, client uint64, limit int) ([]*scanModel.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint64, status scanModel.OrderStatus) error
	UpdatePDFPath(ctx context.Context, id uint64, pdfPath string) error
	SoftDeleteOrder(ctx context.Context, id uint64) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建批次仓库实例
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{
		db: db,
	}
}

// CreateOrder 创建批次
func (r *orderRepository) CreateOrder(ctx context.Context, order *scanModel.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetOrderByID 获取指定批次 [未找到返回nil,nil]
func (r *orderRepository) GetOrderByID(ctx context.Context, id uint64) (*scanModel.Order, error) {
	var order scanModel.Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetOrdersByIDs 批量获取批次
func (r *orderRepository) GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var orders []*scanModel.Order
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted = ?", ids, false).
		Find(&orders).Error
	return orders, err
}

// GetOrdersByClient 获取指定客户的批次列表
func (r *orderRepository) GetOrdersByClient(ctx context.Context, client uint64, limit int) ([]*scanModel.Order, error) {
	var orders []*scanModel.Order
	err := r.db.WithContext(ctx).
		Where("client = ? AND deleted = ?", client, false).
		Order("created_at desc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// UpdateOrderStatus 更新批次汇总状态
// 汇总重算是幂等的纯函数,并发写同一个值不会产生冲突
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uint64, status scanModel.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&scanModel.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdatePDFPath 更新批次报告文件路径 [报告重新生成时覆盖]
func (r *orderRepository) UpdatePDFPath(ctx context.Context, id uint64, pdfPath string) error {
	return r.db.WithContext(ctx).Model(&scanModel.Order{}).
		Where("id = ?", id).
		Update("pdf_path", pdfPath).Error
}

// SoftDeleteOrder 软删除批次 [子目标的级联删除由服务层调用TargetRepository完成]
func (r *orderRepository) SoftDeleteOrder(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&scanModel.Order{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}
