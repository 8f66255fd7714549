package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/lazyflow/pkg/api/dto"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/task"
)

// PipelineHandler Pipeline API处理器
type PipelineHandler struct {
	registry   *engine.Registry
	scheduler  *engine.CronScheduler // 可为 nil
	runTimeout time.Duration         // 0 表示不限制
}

// NewPipelineHandler 创建PipelineHandler
func NewPipelineHandler(registry *engine.Registry, scheduler *engine.CronScheduler, runTimeout time.Duration) *PipelineHandler {
	return &PipelineHandler{registry: registry, scheduler: scheduler, runTimeout: runTimeout}
}

// List 列出所有Pipeline
// GET /api/v1/pipelines
func (h *PipelineHandler) List(c *gin.Context) {
	pipelines := h.registry.List()
	items := make([]dto.PipelineSummary, 0, len(pipelines))
	for _, p := range pipelines {
		items = append(items, h.summary(p))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.PipelineSummary]{
		Total: len(items),
		Items: items,
	}))
}

// Get 获取Pipeline详情
// GET /api/v1/pipelines/:name
func (h *PipelineHandler) Get(c *gin.Context) {
	p, ok := h.registry.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("Pipeline %s 不存在", c.Param("name"))))
		return
	}

	levels, err := p.DAG().Levels()
	if err != nil {
		c.JSON(statusFor(err), dto.NewErrorResponse(statusFor(err), err.Error()))
		return
	}
	detail := dto.PipelineDetail{PipelineSummary: h.summary(p)}
	for _, n := range p.DAG().Nodes() {
		detail.Nodes = append(detail.Nodes, dto.NodeSummary{
			ID:       n.ID,
			Kind:     n.Kind.String(),
			Parents:  n.Parents,
			Children: n.Children,
			Options:  n.Options(),
		})
	}
	for _, level := range levels {
		detail.Levels = append(detail.Levels, ids(level))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(detail))
}

// Run 同步运行Pipeline并返回运行报告
// POST /api/v1/pipelines/:name/runs
func (h *PipelineHandler) Run(c *gin.Context) {
	p, ok := h.registry.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("Pipeline %s 不存在", c.Param("name"))))
		return
	}

	var req dto.RunPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数错误: %v", err)))
		return
	}

	ctx := c.Request.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	var (
		report *engine.RunReport
		err    error
	)
	if req.Target != "" {
		report, err = p.RunTarget(ctx, req.Target)
	} else {
		report, err = p.Run(ctx)
	}
	if err != nil {
		status := statusFor(err)
		c.JSON(status, dto.NewErrorResponseWithData(status, err.Error(), report))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}

func (h *PipelineHandler) summary(p *engine.Pipeline) dto.PipelineSummary {
	d := p.DAG()
	s := dto.PipelineSummary{
		Name:      p.Name(),
		NodeCount: d.Len(),
		Workers:   p.Workers(),
		Roots:     ids(d.Roots()),
		Leaves:    ids(d.Leaves()),
	}
	if h.scheduler != nil {
		if next, err := h.scheduler.Next(p.Name()); err == nil && !next.IsZero() {
			s.NextRun = &next
		}
	}
	return s
}

func ids(nodes []*task.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
