/**
 * 扫描模型:请求DTO
 * @author: sun977
 * @date: 2025.11.23
 * @description: 扫描API的请求载荷定义
 */
package scanner

// AddByIDsRequest 按目标ID列表派发扫描
// 全量校验:任一目标缺失/越权/处于终态则整个请求失败,不派发任何目标
type AddByIDsRequest struct {
	TargetIDs []uint64 `json:"target_ids" binding:"required,min=1"`
}

// AddByNumbersRequest 按数量派发扫描
// 取最早创建的N个待扫描目标,允许部分成功
type AddByNumbersRequest struct {
	Count int `json:"count" binding:"required,min=1"`
}

// AddByOrdersRequest 按批次派发扫描
// 派发各批次下全部非终态目标,允许部分成功
type AddByOrdersRequest struct {
	OrderIDs []uint64 `json:"order_ids" binding:"required,min=1"`
}

// PlaceOrderRequest 提交扫描批次
// host按启用工具展开为多个目标
type PlaceOrderRequest struct {
	Host    string `json:"host" binding:"required"`
	MaxTier int    `json:"max_tier"`
}

// ResetTargetRequest 重置终态目标以便重新派发
type ResetTargetRequest struct {
	TargetID uint64 `json:"target_id" binding:"required"`
}

// CreateToolRequest 注册扫描工具
type CreateToolRequest struct {
	Name      string `json:"name" binding:"required"`
	ToolCmd   string `json:"tool_cmd" binding:"required"`
	Cmd       string `json:"cmd" binding:"required"`
	TimeLimit int    `json:"time_limit" binding:"required,min=1"`
	Tier      int    `json:"tier"`
	Sudo      bool   `json:"sudo"`
}
