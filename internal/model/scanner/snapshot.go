package scanner

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion 快照序列化格式版本号
// 反序列化时版本不匹配视为快照损坏，读取方回退到数据库
const SnapshotVersion = 1

// TargetSnapshot 目标状态的缓存快照
// 缓存值始终是整个快照的JSON，不允许按字段拆分存储
// 缓存不是权威数据源，读取方必须容忍键缺失(视为已清理)与短暂陈旧
type TargetSnapshot struct {
	Version   int          `json:"version"`    // 格式版本
	ID        uint64       `json:"id"`         // 目标ID
	Host      string       `json:"host"`       // 扫描主机
	Status    TargetStatus `json:"status"`     // 目标状态
	ToolID    uint64       `json:"tool_id"`    // 工具ID
	OrderID   uint64       `json:"order_id"`   // 批次ID
	ScanBy    uint64       `json:"scan_by"`    // 发起用户ID
	TimeLimit int          `json:"time_limit"` // 工具时间上限(秒)，进度计算用
	Retry     int          `json:"retry"`      // 重试次数
	ScanTime  int          `json:"scan_time"`  // 扫描耗时(秒)
	UpdatedAt time.Time    `json:"updated_at"` // 快照写入时间
	Percent   float64      `json:"percent"`    // 完成百分比(仅推送时填充)
}

// OrderSnapshot 批次状态的缓存快照
// TargetIDs 记录子目标ID列表，流式端点借此经get_many拉取全部子快照
type OrderSnapshot struct {
	Version   int         `json:"version"`    // 格式版本
	ID        uint64      `json:"id"`         // 批次ID
	Client    uint64      `json:"client"`     // 所属客户ID
	TargetIP  string      `json:"target_ip"`  // 提交的主机
	Status    OrderStatus `json:"status"`     // 汇总状态
	TargetIDs []uint64    `json:"target_ids"` // 子目标ID列表
	UpdatedAt time.Time   `json:"updated_at"` // 快照写入时间
	Percent   float64     `json:"percent"`    // 完成百分比(仅推送时填充)
}

// NewTargetSnapshot 从Target实体构建快照
func NewTargetSnapshot(t *Target, timeLimit int) *TargetSnapshot {
	return &TargetSnapshot{
		Version:   SnapshotVersion,
		ID:        t.ID,
		Host:      t.Host,
		Status:    t.Status,
		ToolID:    t.ToolID,
		OrderID:   t.OrderID,
		ScanBy:    t.ScanBy,
		TimeLimit: timeLimit,
		Retry:     t.Retry,
		ScanTime:  t.ScanTime,
		UpdatedAt: time.Now(),
	}
}

// NewOrderSnapshot 从Order实体与子目标ID列表构建快照
func NewOrderSnapshot(o *Order, targetIDs []uint64) *OrderSnapshot {
	return &OrderSnapshot{
		Version:   SnapshotVersion,
		ID:        o.ID,
		Client:    o.Client,
		TargetIP:  o.TargetIP,
		Status:    o.Status,
		TargetIDs: targetIDs,
		UpdatedAt: time.Now(),
	}
}

// Encode 序列化为JSON字符串
func (s *TargetSnapshot) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal target snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeTargetSnapshot 反序列化目标快照并校验版本
func DecodeTargetSnapshot(raw string) (*TargetSnapshot, error) {
	var s TargetSnapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported target snapshot version: %d", s.Version)
	}
	return &s, nil
}

// Encode 序列化为JSON字符串
func (s *OrderSnapshot) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeOrderSnapshot 反序列化批次快照并校验版本
func DecodeOrderSnapshot(raw string) (*OrderSnapshot, error) {
	var s OrderSnapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported order snapshot version: %d", s.Version)
	}
	return &s, nil
}
