/**
 * 中间件:认证相关中间件
 * @author: sun977
 * @date: 2025.11.23
 * @description: 定义认证相关中间件
 * @func:
 *   - GinJWTAuthMiddleware: Gin JWT认证中间件
 *   - GinAdminRoleMiddleware: 仅特权角色可通过的中间件
 *   - CallerFromGinContext: 从Gin上下文取出已认证调用方
 *   - extractTokenFromGinHeader: 从Gin请求头中提取JWT令牌
 */
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"scanmaster/internal/model"
	"scanmaster/internal/pkg/logger"
	scanService "scanmaster/internal/service/scanner"

	"github.com/gin-gonic/gin"
)

// 调用方信息在Gin上下文中的键
const contextKeyCaller = "caller"

// GinJWTAuthMiddleware Gin JWT认证中间件
// 验证请求头中的JWT令牌,并把调用方信息存储到Gin上下文中
// 使用方式: router.Use(middlewareManager.GinJWTAuthMiddleware())
func (m *MiddlewareManager) GinJWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, err := extractTokenFromGinHeader(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized,
				"missing or invalid authorization header", err))
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			logger.LogError(err, c.GetHeader("X-Request-ID"), 0, c.ClientIP(),
				c.Request.URL.Path, c.Request.Method, map[string]interface{}{
					"operation": "token_validation",
				})
			c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized,
				"invalid or expired token", err))
			c.Abort()
			return
		}

		c.Set(contextKeyCaller, scanService.Caller{
			UserID:     claims.UserID,
			ClientID:   claims.ClientID,
			Privileged: claims.Privileged(),
		})
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// GinAdminRoleMiddleware 仅特权角色可通过 [工具管理等管理面接口用]
// 必须挂在GinJWTAuthMiddleware之后
func (m *MiddlewareManager) GinAdminRoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromGinContext(c)
		if !ok || !caller.Privileged {
			c.JSON(http.StatusForbidden, model.NewErrorResponse(http.StatusForbidden,
				"insufficient privileges", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerFromGinContext 从Gin上下文取出已认证调用方
func CallerFromGinContext(c *gin.Context) (scanService.Caller, bool) {
	value, exists := c.Get(contextKeyCaller)
	if !exists {
		return scanService.Caller{}, false
	}
	caller, ok := value.(scanService.Caller)
	return caller, ok
}

// extractTokenFromGinHeader 从Authorization头提取Bearer令牌
func extractTokenFromGinHeader(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errors.New("authorization header is empty")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be Bearer {token}")
	}
	return strings.TrimSpace(parts[1]), nil
}
