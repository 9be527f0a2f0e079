// 自定义日志格式化器与分类日志入口
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
// 返回格式："2006-01-02 15:04:05.000"
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// NowFormatted 返回当前时间的格式化字符串
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录HTTP请求和API调用
	AccessLog LogType = "access"
	// ScanLog 扫描日志 - 记录扫描任务的派发与执行
	ScanLog LogType = "scan"
	// ComposeLog 解析日志 - 记录工具输出解析与告警生成
	ComposeLog LogType = "compose"
	// ProgressLog 进度日志 - 记录进度聚合与推送
	ProgressLog LogType = "progress"
	// ReportLog 报告日志 - 记录PDF报告生成
	ReportLog LogType = "report"
	// ErrorLog 错误日志 - 记录系统错误和异常
	ErrorLog LogType = "error"
	// SystemLog 系统日志 - 记录系统运行状态
	SystemLog LogType = "system"
	// DebugLog 调试日志 - 记录开发调试信息
	DebugLog LogType = "debug"
)

// AccessLogEntry 访问日志条目结构
type AccessLogEntry struct {
	Method       string `json:"method"`        // HTTP方法
	Path         string `json:"path"`          // 请求路径
	Query        string `json:"query"`         // 查询参数
	StatusCode   int    `json:"status_code"`   // 响应状态码
	ResponseTime int64  `json:"response_time"` // 响应时间(毫秒)
	ClientIP     string `json:"client_ip"`     // 客户端IP
	UserAgent    string `json:"user_agent"`    // 用户代理
	UserID       uint   `json:"user_id"`       // 用户ID（如果已认证）
	RequestID    string `json:"request_id"`    // 请求追踪ID
}

// ScanLogEntry 扫描日志条目结构
type ScanLogEntry struct {
	OrderID  uint64 `json:"order_id"`  // 扫描批次ID
	TargetID uint64 `json:"target_id"` // 目标ID
	ToolCmd  string `json:"tool_cmd"`  // 工具命令标识
	Host     string `json:"host"`      // 扫描主机
	Event    string `json:"event"`     // 事件类型（dispatched, started, finished, terminated等）
	Message  string `json:"message"`   // 详细信息
}

// LogAccessRequest 记录HTTP访问日志
// 用于记录所有HTTP请求的详细信息，包括请求参数、响应时间、状态码等
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string, userID uint) {
	if LoggerInstance == nil {
		return
	}

	responseTime := time.Since(startTime).Milliseconds()

	entry := AccessLogEntry{
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		Query:        c.Request.URL.RawQuery,
		StatusCode:   c.Writer.Status(),
		ResponseTime: responseTime,
		ClientIP:     c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		UserID:       userID,
		RequestID:    requestID,
	}

	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        entry.Method,
		"path":          entry.Path,
		"query":         entry.Query,
		"status_code":   entry.StatusCode,
		"response_time": entry.ResponseTime,
		"client_ip":     entry.ClientIP,
		"user_agent":    entry.UserAgent,
		"user_id":       entry.UserID,
		"request_id":    entry.RequestID,
	}).Info("HTTP request processed")
}

// LogScanEvent 记录扫描任务生命周期日志
// 用于记录派发、启动、完成、超时终止等事件
func LogScanEvent(orderID, targetID uint64, toolCmd, host, event, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	entry := ScanLogEntry{
		OrderID:  orderID,
		TargetID: targetID,
		ToolCmd:  toolCmd,
		Host:     host,
		Event:    event,
		Message:  message,
	}

	fields := logrus.Fields{
		"type":      ScanLog,
		"order_id":  entry.OrderID,
		"target_id": entry.TargetID,
		"tool_cmd":  entry.ToolCmd,
		"host":      entry.Host,
		"event":     entry.Event,
		"message":   entry.Message,
	}

	for k, v := range extraFields {
		fields[k] = v
	}

	switch event {
	case "terminated", "failed":
		LoggerInstance.logger.WithFields(fields).Warn(fmt.Sprintf("Scan %s: %s on target %d", event, toolCmd, targetID))
	default:
		LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Scan %s: %s on target %d", event, toolCmd, targetID))
	}
}

// LogComposeEvent 记录解析流水线日志
// 用于记录handler选择、探测函数执行和告警合并
func LogComposeEvent(targetID uint64, toolCmd, event, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      ComposeLog,
		"target_id": targetID,
		"tool_cmd":  toolCmd,
		"event":     event,
		"message":   message,
	}

	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Compose %s: %s", event, toolCmd))
}

// LogProgressEvent 记录进度聚合与推送日志
func LogProgressEvent(orderID uint64, event, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":     ProgressLog,
		"order_id": orderID,
		"event":    event,
		"message":  message,
	}

	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Progress %s for order %d", event, orderID))
}

// LogReportEvent 记录报告生成日志
func LogReportEvent(targetID uint64, filename, event, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      ReportLog,
		"target_id": targetID,
		"filename":  filename,
		"event":     event,
		"message":   message,
	}

	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("Report %s: %s", event, filename))
}

// LogError 记录错误日志
// 用于记录系统错误、异常和业务错误
func LogError(err error, requestID string, userID uint, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	if err == nil {
		return
	}

	fields := logrus.Fields{
		"type":       ErrorLog,
		"level":      "error",
		"error":      err.Error(),
		"request_id": requestID,
		"user_id":    userID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}

	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Errorf("System error occurred: %s", err.Error())
}

// LogSystemEvent 记录系统事件日志
// 用于记录系统启动、关闭、组件状态变化等系统级事件
func LogSystemEvent(component, event, message string, level logrus.Level, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
		"message":   message,
		"level":     level.String(),
	}

	for k, v := range extraFields {
		fields[k] = v
	}

	switch level {
	case logrus.DebugLevel:
		LoggerInstance.logger.WithFields(fields).Debug(fmt.Sprintf("System event: %s - %s", component, event))
	case logrus.InfoLevel:
		LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("System event: %s - %s", component, event))
	case logrus.WarnLevel:
		LoggerInstance.logger.WithFields(fields).Warn(fmt.Sprintf("System event: %s - %s", component, event))
	case logrus.ErrorLevel:
		LoggerInstance.logger.WithFields(fields).Error(fmt.Sprintf("System event: %s - %s", component, event))
	case logrus.FatalLevel:
		LoggerInstance.logger.WithFields(fields).Fatal(fmt.Sprintf("System event: %s - %s", component, event))
	default:
		LoggerInstance.logger.WithFields(fields).Info(fmt.Sprintf("System event: %s - %s", component, event))
	}
}
