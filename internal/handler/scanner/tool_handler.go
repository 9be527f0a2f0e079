/**
 * 扫描处理器层:工具管理
 * @author: sun977
 * @date: 2025.11.23
 * @description: 扫描工具的注册/查询/下线 [仅特权角色]
 */
package scanner

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scanmaster/internal/model"
	scanModel "scanmaster/internal/model/scanner"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
)

// ToolHandler 工具管理处理器
type ToolHandler struct {
	toolRepo scanRepo.ToolRepository
}

// NewToolHandler 创建工具管理处理器实例
func NewToolHandler(toolRepo scanRepo.ToolRepository) *ToolHandler {
	return &ToolHandler{toolRepo: toolRepo}
}

// CreateTool 注册扫描工具
func (h *ToolHandler) CreateTool(c *gin.Context) {
	var req scanModel.CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid request format", err))
		return
	}

	tool := &scanModel.Tool{
		Name:      req.Name,
		ToolCmd:   req.ToolCmd,
		Cmd:       req.Cmd,
		TimeLimit: req.TimeLimit,
		Tier:      req.Tier,
		Sudo:      req.Sudo,
	}
	if err := h.toolRepo.CreateTool(c.Request.Context(), tool); err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to create tool", err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("tool created", tool))
}

// ListTools 查询启用工具列表
// ?max_tier=N 只返回订阅等级门槛不超过N的工具,缺省返回全部
func (h *ToolHandler) ListTools(c *gin.Context) {
	maxTier := -1
	if tierParam := c.Query("max_tier"); tierParam != "" {
		parsed, err := strconv.Atoi(tierParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid max_tier", err))
			return
		}
		maxTier = parsed
	}

	tools, err := h.toolRepo.ListActiveTools(c.Request.Context(), maxTier)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to list tools", err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("tools loaded", tools))
}

// DeleteTool 下线扫描工具 [软删除,不影响历史目标]
func (h *ToolHandler) DeleteTool(c *gin.Context) {
	toolID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "invalid tool id", err))
		return
	}

	if err := h.toolRepo.SoftDeleteTool(c.Request.Context(), toolID); err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, "failed to delete tool", err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse("tool deleted", nil))
}
