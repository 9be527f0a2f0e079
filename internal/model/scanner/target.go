package scanner

import (
	"time"

	"scanmaster/internal/model/basemodel"
)

// TargetStatus 目标扫描状态
// 状态只能单调前进：Created -> Queued -> Running -> {Terminated, Finished}
// 一旦进入 Terminated/Finished 即为终态，除非显式重置否则不允许再次派发
type TargetStatus int

const (
	TargetCreated    TargetStatus = 0 // 已创建，尚未派发
	TargetQueued     TargetStatus = 1 // 已入队，等待worker执行
	TargetRunning    TargetStatus = 2 // 工具正在执行
	TargetTerminated TargetStatus = 3 // 工具崩溃/超时/输出不可解析
	TargetFinished   TargetStatus = 4 // 工具正常返回
)

// IsTerminal 判断是否为终态
func (s TargetStatus) IsTerminal() bool {
	return s >= TargetTerminated
}

// CanAdvanceTo 判断状态迁移是否合法 [只允许单调前进]
func (s TargetStatus) CanAdvanceTo(next TargetStatus) bool {
	return next >= s
}

// String 状态的可读名称
func (s TargetStatus) String() string {
	switch s {
	case TargetCreated:
		return "created"
	case TargetQueued:
		return "queued"
	case TargetRunning:
		return "running"
	case TargetTerminated:
		return "terminated"
	case TargetFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Target 扫描目标实体
// 一个 Target 对应一次 (host, tool) 组合的扫描单元
// Order(批次) -- Target(单元)[一个host展开为多个tool的Target]
// RawResult 保存工具原始stdout/stderr文本，ComposeResult 保存解析后的告警map(JSON)，按需惰性生成
type Target struct {
	basemodel.BaseModel

	Host          string       `json:"host" gorm:"index;not null;size:255;comment:扫描主机(IP或域名)"`
	Status        TargetStatus `json:"status" gorm:"index;default:0;comment:目标状态(0创建/1排队/2运行/3终止/4完成)"`
	RawResult     string       `json:"raw_result" gorm:"type:longtext;comment:工具原始输出"`
	ComposeResult string       `json:"compose_result" gorm:"type:longtext;comment:解析后的告警map(JSON)"`
	ToolID        uint64       `json:"tool_id" gorm:"index;not null;comment:所用工具ID"`
	OrderID       uint64       `json:"order_id" gorm:"index;not null;comment:所属批次ID"`
	ScanBy        uint64       `json:"scan_by" gorm:"index;comment:发起扫描的用户ID"`
	Retry         int          `json:"retry" gorm:"default:0;comment:重试次数(仅记录,不自动重试)"`
	ScanTime      int          `json:"scan_time" gorm:"default:0;comment:扫描耗时(秒)"`
	PDFPath       string       `json:"pdf_path" gorm:"size:512;comment:单目标报告PDF相对路径"`
	Deleted       bool         `json:"deleted" gorm:"index;default:false;comment:软删除标记"`

	StartedAt  *time.Time `json:"started_at" gorm:"comment:开始执行时间"`
	FinishedAt *time.Time `json:"finished_at" gorm:"comment:结束时间"`
}

// TableName 定义表名
func (Target) TableName() string {
	return "scan_targets"
}

// HasComposeResult 判断是否已有解析缓存
func (t *Target) HasComposeResult() bool {
	return t.ComposeResult != "" && t.ComposeResult != "{}"
}
