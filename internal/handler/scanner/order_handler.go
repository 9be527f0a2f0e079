/**
 * 扫描处理器层:批次HTTP请求处理
 * @author: sun977
 * @date: 2025.11.23
 * @description: 批次的提交/查询/删除
 */
package scanner

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scanmaster/internal/app/master/middleware"
	"scanmaster/internal/model"
	scanModel "scanmaster/internal/model/scanner"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
	scanService "scanmaster/internal/service/scanner"
)

// OrderHandler 批次处理器
type OrderHandler struct {
	scanService *scanService.ScanService
	orderRepo   scanRepo.OrderRepository
	targetRepo  scanRepo.TargetRepository
}

// NewOrderHandler 创建批次处理器实例
func NewOrderHandler(service *scanService.ScanService, orderRepo scanRepo.OrderRepository, targetRepo scanRepo.TargetRepository) *OrderHandler {
	return &OrderHandler{
		scanService: service,
		orderRepo:   orderRepo,
		targetRepo:  targetRepo,
	}
}

// PlaceOrder 提交扫描批次
// host按订阅等级内的启用工具展开为多个目标,只建单不派发
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	var req scanModel.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request format", err))
		return
	}

	order, targets, err := h.scanService.PlaceOrder(c.Request.Context(), caller, req.Host, req.MaxTier)
	if err != nil {
		status, message := dispatchErrorStatus(err)
		c.JSON(status, model.NewErrorResponse(status, message, err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("order placed", gin.H{
		"order":   order,
		"targets": targets,
	}))
}

// GetOrder 查询批次及其子目标
func (h *OrderHandler) GetOrder(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid order id", err))
		return
	}

	order, err := h.orderRepo.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to load order", err))
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "order not found", nil))
		return
	}
	if !caller.Privileged && order.Client != caller.ClientID {
		c.JSON(http.StatusForbidden, model.NewErrorResponse(http.StatusForbidden, "permission denied", nil))
		return
	}

	targets, err := h.targetRepo.GetTargetsByOrderID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to load targets", err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("order loaded", gin.H{
		"order":   order,
		"targets": targets,
	}))
}

// DeleteOrder 软删除批次,级联软删除子目标并清理进度缓存
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid order id", err))
		return
	}

	if err := h.scanService.DeleteOrder(c.Request.Context(), caller, orderID); err != nil {
		status, message := dispatchErrorStatus(err)
		c.JSON(status, model.NewErrorResponse(status, message, err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("order deleted", nil))
}
