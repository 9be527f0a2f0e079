/**
 * 路由:扫描业务路由
 * @author: sun977
 * @date: 2025.11.23
 * @description: 扫描派发/订单/进度推送/报告下载路由,均需JWT认证;工具管理仅限管理员
 */
package router

import (
	"github.com/gin-gonic/gin"
)

// setupScanRoutes 设置扫描业务路由
func (r *Router) setupScanRoutes(api *gin.RouterGroup) {
	// 认证路由组 [注入Caller]
	authed := api.Group("")
	authed.Use(r.middlewareManager.GinJWTAuthMiddleware())
	{
		// 扫描派发
		scan := authed.Group("/scan")
		{
			scan.POST("/addByIds", r.scanHandler.AddByIDs)
			scan.POST("/addByNumbers", r.scanHandler.AddByNumbers)
			scan.POST("/reset", r.scanHandler.ResetTarget)
			scan.GET("/:id/report", r.reportHandler.GetTargetReport)
		}

		// 扫描订单
		order := authed.Group("/order")
		{
			order.POST("", r.orderHandler.PlaceOrder)
			order.POST("/addByIds", r.scanHandler.AddByOrders)
			order.GET("/:id", r.orderHandler.GetOrder)
			order.DELETE("/:id", r.orderHandler.DeleteOrder)
			order.GET("/:id/report", r.reportHandler.GetOrderReport)
		}

		// 进度推送触发 [?order=<订单ID> 或 ?id=<目标ID>]
		authed.GET("/sendMessage", r.progressHandler.SendMessage)

		// 工具查询对所有认证用户开放
		authed.GET("/tools", r.toolHandler.ListTools)
	}

	// 管理员路由组
	admin := api.Group("/admin")
	admin.Use(r.middlewareManager.GinJWTAuthMiddleware())
	admin.Use(r.middlewareManager.GinAdminRoleMiddleware())
	{
		admin.POST("/tools", r.toolHandler.CreateTool)
		admin.DELETE("/tools/:id", r.toolHandler.DeleteTool)
	}
}
