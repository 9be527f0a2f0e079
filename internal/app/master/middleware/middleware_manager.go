/**
 * 中间件:中间件管理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 管理所有Gin中间件,提供统一的装配入口
 */
package middleware

import (
	"scanmaster/internal/config"
	"scanmaster/internal/pkg/auth"

	"github.com/gin-gonic/gin"
)

// MiddlewareManager 中间件管理器
type MiddlewareManager struct {
	jwtManager     *auth.JWTManager
	securityConfig *config.SecurityConfig
}

// NewMiddlewareManager 创建中间件管理器
func NewMiddlewareManager(jwtManager *auth.JWTManager, securityConfig *config.SecurityConfig) *MiddlewareManager {
	return &MiddlewareManager{
		jwtManager:     jwtManager,
		securityConfig: securityConfig,
	}
}

// SetupGlobalMiddlewares 装配全局中间件 [所有路由生效]
func (m *MiddlewareManager) SetupGlobalMiddlewares(engine *gin.Engine) {
	engine.Use(m.GinRequestIDMiddleware())
	engine.Use(m.GinLoggingMiddleware())
	engine.Use(m.GinRecoveryMiddleware())
	engine.Use(m.GinCORSMiddleware())
}
