/**
 * 扫描处理器层:报告HTTP请求处理
 * @author: sun977
 * @date: 2025.11.23
 * @description: 单目标/批次PDF报告的生成与下载
 */
package scanner

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"scanmaster/internal/app/master/middleware"
	"scanmaster/internal/config"
	"scanmaster/internal/model"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
	"scanmaster/internal/service/report"
)

// ReportHandler 报告处理器
type ReportHandler struct {
	reportService *report.ReportService
	orderRepo     scanRepo.OrderRepository
	targetRepo    scanRepo.TargetRepository
	cfg           *config.ReportConfig
}

// NewReportHandler 创建报告处理器实例
func NewReportHandler(reportService *report.ReportService, orderRepo scanRepo.OrderRepository, targetRepo scanRepo.TargetRepository, cfg *config.ReportConfig) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		orderRepo:     orderRepo,
		targetRepo:    targetRepo,
		cfg:           cfg,
	}
}

// GetTargetReport 生成(或取缓存)单目标报告并回传PDF文件
// ?regenerate=true 强制重新解析并重渲染
func (h *ReportHandler) GetTargetReport(c *gin.Context) {
	caller, ok := middleware.CallerFromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, "unauthenticated", nil))
		return
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
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

	regenerate := c.Query("regenerate") == "true"
	path, err := h.reportService.GenerateTargetReport(c.Request.Context(), caller.UserID, targetID, regenerate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to generate report", err))
		return
	}

	c.FileAttachment(filepath.Join(h.cfg.OutputDir, path), filepath.Base(path))
}

// GetOrderReport 生成(或取缓存)批次报告并回传PDF文件
func (h *ReportHandler) GetOrderReport(c *gin.Context) {
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

	regenerate := c.Query("regenerate") == "true"
	path, err := h.reportService.GenerateOrderReport(c.Request.Context(), caller.UserID, orderID, regenerate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to generate report", err))
		return
	}

	c.FileAttachment(filepath.Join(h.cfg.OutputDir, path), filepath.Base(path))
}
