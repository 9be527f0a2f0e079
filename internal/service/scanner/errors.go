package scanner

import "errors"

// 派发层错误分类
// 校验/权限错误同步返回给派发调用方;扫描执行错误只落到Target状态上,从不同步抛出
var (
	// ErrValidation 派发输入非法 [任何任务入队之前拒绝]
	ErrValidation = errors.New("invalid dispatch request")
	// ErrNotFound 引用的target/order/tool不存在
	ErrNotFound = errors.New("referenced entity not found")
	// ErrForbidden 调用方无所有权且无越权权限
	ErrForbidden = errors.New("caller does not own the requested resource")
	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("scan job queue is full")
)
