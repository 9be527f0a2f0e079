/**
 * 扫描处理器层:进度推送触发
 * @author: sun977
 * @date: 2025.11.23
 * @description: 触发批次/目标的进度推送会话,进度经pub/sub通道送达,本接口只负责起会话
 */
package scanner

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scanmaster/internal/app/master/middleware"
	"scanmaster/internal/model"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
	"scanmaster/internal/service/progress"
)

// ProgressHandler 进度推送触发处理器
type ProgressHandler struct {
	progressService *progress.ProgressService
	orderRepo       scanRepo.OrderRepository
	targetRepo      scanRepo.TargetRepository
}

// NewProgressHandler 创建进度处理器实例
func NewProgressHandler(progressService *progress.ProgressService, orderRepo scanRepo.OrderRepository, targetRepo scanRepo.TargetRepository) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		orderRepo:       orderRepo,
		targetRepo:      targetRepo,
	}
}

// SendMessage 启动进度推送会话
// GET /api/sendMessage?order=<id> 或 ?id=<target_id>
// 会话用后台上下文运行,不随本次HTTP请求结束而取消
func (h *ProgressHandler) SendMessage(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	if orderParam := c.Query("order"); orderParam != "" {
		orderID, err := strconv.ParseUint(orderParam, 10, 64)
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

		h.progressService.WatchOrder(context.Background(), orderID, recipients(caller.UserID, order.Client))
		c.JSON(http.StatusOK, model.NewSuccessResponse("order progress session started", gin.H{"order_id": orderID}))
		return
	}

	if targetParam := c.Query("id"); targetParam != "" {
		targetID, err := strconv.ParseUint(targetParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid target id", err))
			return
		}

		target, err := h.targetRepo.GetTargetByID(c.Request.Context(), targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to load target", err))
			return
		}
		if target == nil {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "target not found", nil))
			return
		}
		if !caller.Privileged && target.ScanBy != caller.UserID {
			c.JSON(http.StatusForbidden, model.NewErrorResponse(http.StatusForbidden, "permission denied", nil))
			return
		}

		h.progressService.WatchTarget(context.Background(), targetID, recipients(caller.UserID, target.ScanBy))
		c.JSON(http.StatusOK, model.NewSuccessResponse("target progress session started", gin.H{"target_id": targetID}))
		return
	}

	c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "order or id query parameter is required", nil))
}

// recipients 去重后的推送接收者列表
func recipients(ids ...uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
