package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/lazyflow/pkg/api/dto"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/storage"
)

// RunHandler 运行历史API处理器
type RunHandler struct {
	repo storage.RunRepository // 为 nil 时历史接口返回 503
}

// NewRunHandler 创建RunHandler
func NewRunHandler(repo storage.RunRepository) *RunHandler {
	return &RunHandler{repo: repo}
}

// List 查询运行历史
// GET /api/v1/runs
func (h *RunHandler) List(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var query dto.HistoryQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}

	limit := query.GetDefaultLimit()
	// 多取一条用于判断是否还有下一页
	reports, err := h.repo.List(c.Request.Context(), storage.RunFilter{
		Pipeline: query.Pipeline,
		Status:   query.Status,
		Limit:    limit + 1,
		Offset:   query.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行历史失败: %v", err)))
		return
	}
	hasMore := len(reports) > limit
	if hasMore {
		reports = reports[:limit]
	}

	items := make([]dto.RunSummary, 0, len(reports))
	for _, r := range reports {
		items = append(items, toRunSummary(r))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.RunSummary]{
		Total:   len(items),
		Items:   items,
		HasMore: hasMore,
	}))
}

// Get 获取运行详情（含节点）
// GET /api/v1/runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	report, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), dto.NewErrorResponse(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}

// Delete 删除运行记录
// DELETE /api/v1/runs/:id
func (h *RunHandler) Delete(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), dto.NewErrorResponse(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{"run_id": c.Param("id")}))
}

func (h *RunHandler) ready(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, "运行历史未启用"))
		return false
	}
	return true
}

func toRunSummary(r *engine.RunReport) dto.RunSummary {
	s := dto.RunSummary{
		RunID:     r.RunID,
		Pipeline:  r.Pipeline,
		Target:    r.Target,
		Mode:      r.Mode,
		Status:    r.Status,
		StartedAt: r.StartedAt,
		Error:     r.Error,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		s.FinishedAt = &finished
		s.Duration = formatDuration(r.Duration)
	}
	return s
}
