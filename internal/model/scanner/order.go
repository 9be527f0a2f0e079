package scanner

import (
	"scanmaster/internal/model/basemodel"
)

// OrderStatus 批次汇总状态
// 由子Target状态汇总推导：全部Finished则Finished；全部终态但并非全部Finished则Failed；否则InProgress
type OrderStatus int

const (
	OrderCreated    OrderStatus = 0 // 已创建
	OrderInProgress OrderStatus = 1 // 存在未到终态的子目标
	OrderFailed     OrderStatus = 2 // 全部终态但有失败
	OrderFinished   OrderStatus = 3 // 全部成功完成
)

// IsTerminal 判断汇总状态是否为终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFailed || s == OrderFinished
}

// String 状态的可读名称
func (s OrderStatus) String() string {
	switch s {
	case OrderCreated:
		return "created"
	case OrderInProgress:
		return "in_progress"
	case OrderFailed:
		return "failed"
	case OrderFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Order 扫描批次实体
// 一次提交的host按启用的工具展开为多个Target，归属同一个Order
type Order struct {
	basemodel.BaseModel

	Client   uint64      `json:"client" gorm:"index;not null;comment:所属客户ID"`
	TargetIP string      `json:"target_ip" gorm:"index;not null;size:255;comment:提交的主机(IP或域名)"`
	Status   OrderStatus `json:"status" gorm:"index;default:0;comment:批次状态(0创建/1进行中/2失败/3完成)"`
	Retry    int         `json:"retry" gorm:"default:0;comment:重试次数"`
	ScanTime int         `json:"scan_time" gorm:"default:0;comment:总扫描耗时(秒)"`
	PDFPath  string      `json:"pdf_path" gorm:"size:512;comment:批次报告PDF相对路径"`
	Deleted  bool        `json:"deleted" gorm:"index;default:false;comment:软删除标记"`
}

// TableName 定义表名
func (Order) TableName() string {
	return "scan_orders"
}

// RollupStatus 根据子Target状态集合推导批次状态
// 纯函数且幂等，并发重算不会产生冲突
func RollupStatus(statuses []TargetStatus) OrderStatus {
	if len(statuses) == 0 {
		return OrderCreated
	}

	allTerminal := true
	allFinished := true
	for _, s := range statuses {
		if !s.IsTerminal() {
			allTerminal = false
		}
		if s != TargetFinished {
			allFinished = false
		}
	}

	switch {
	case allFinished:
		return OrderFinished
	case allTerminal:
		return OrderFailed
	default:
		return OrderInProgress
	}
}
