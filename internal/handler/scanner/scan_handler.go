/**
 * 扫描处理器层:派发HTTP请求处理
 * @author: sun977
 * @date: 2025.11.23
 * @description: 扫描派发的三种入口(按ID列表/按数量/按批次)与终态目标重置
 * @note: 派发是fire-and-forget,响应只代表入队结果,不代表扫描结果
 */
package scanner

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scanmaster/internal/app/master/middleware"
	"scanmaster/internal/model"
	scanModel "scanmaster/internal/model/scanner"
	scanService "scanmaster/internal/service/scanner"
)

// ScanHandler 扫描派发处理器
type ScanHandler struct {
	scanService *scanService.ScanService
}

// NewScanHandler 创建扫描派发处理器实例
func NewScanHandler(service *scanService.ScanService) *ScanHandler {
	return &ScanHandler{scanService: service}
}

// AddByIDs 按目标ID列表派发扫描
// 全量校验语义:任一目标不合法则整个请求失败,不派发任何目标
func (h *ScanHandler) AddByIDs(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	var req scanModel.AddByIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request format", err))
		return
	}

	result, err := h.scanService.DispatchByIDs(c.Request.Context(), caller, req.TargetIDs)
	if err != nil {
		status, message := dispatchErrorStatus(err)
		c.JSON(status, model.NewErrorResponse(status, message, err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("targets dispatched", result))
}

// AddByNumbers 按数量派发扫描 [允许部分成功]
func (h *ScanHandler) AddByNumbers(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	var req scanModel.AddByNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request format", err))
		return
	}

	result, err := h.scanService.DispatchByCount(c.Request.Context(), caller, req.Count)
	if err != nil {
		status, message := dispatchErrorStatus(err)
		c.JSON(status, model.NewErrorResponse(status, message, err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("targets dispatched", result))
}

// AddByOrders 按批次派发扫描 [允许部分成功,缺失批次记入skipped]
func (h *ScanHandler) AddByOrders(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	var req scanModel.AddByOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request format", err))
		return
	}

	result, err := h.scanService.DispatchByOrders(c.Request.Context(), caller, req.OrderIDs)
	if err != nil {
		status, message := dispatchErrorStatus(err)
		c.JSON(status, model.NewErrorResponse(status, message, err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("orders dispatched", result))
}

// ResetTarget 重置终态目标回初始状态,重试计数加一
func (h *ScanHandler) ResetTarget(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	var req scanModel.ResetTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request format", err))
		return
	}

	if err := h.scanService.ResetTarget(c.Request.Context(), caller, req.TargetID); err != nil {
		status, message := dispatchErrorStatus(err)
		c.JSON(status, model.NewErrorResponse(status, message, err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("target reset", nil))
}

// dispatchErrorStatus 服务层错误到HTTP状态码的映射
func dispatchErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, scanService.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, scanService.ErrForbidden):
		return http.StatusForbidden, "permission denied"
	case errors.Is(err, scanService.ErrValidation):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, scanService.ErrQueueFull):
		return http.StatusServiceUnavailable, "scan queue is full"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
