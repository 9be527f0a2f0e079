/**
 * 中间件:日志与恢复中间件
 * @author: sun977
 * @date: 2025.11.23
 * @description: 定义日志中间件与panic恢复中间件
 * @func:
 *   - GinLoggingMiddleware Gin访问日志中间件
 *   - GinRecoveryMiddleware panic恢复中间件
 */
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"scanmaster/internal/model"
	"scanmaster/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GinLoggingMiddleware Gin访问日志中间件
// 记录所有HTTP请求的访问日志,错误状态码额外记错误日志
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")

		c.Next()

		var userID uint
		if uid, exists := c.Get("user_id"); exists {
			if id, ok := uid.(uint64); ok {
				userID = uint(id)
			}
		}
		logger.LogAccessRequest(c, start, requestID, userID)

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			errorMsg := http.StatusText(status)
			if len(c.Errors) > 0 {
				errorMsg = c.Errors.String()
			}
			logger.LogError(fmt.Errorf("HTTP %d: %s", status, errorMsg), requestID, userID,
				c.ClientIP(), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
					"status_code": status,
				})
		}
	}
}

// GinRecoveryMiddleware panic恢复中间件
// 捕获handler中的panic,记录错误日志并返回500
func (m *MiddlewareManager) GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogError(fmt.Errorf("panic recovered: %v", r), c.GetHeader("X-Request-ID"),
					0, c.ClientIP(), c.Request.URL.Path, c.Request.Method, nil)
				c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
					http.StatusInternalServerError, "internal server error", nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}
