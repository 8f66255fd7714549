package dto

import "time"

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// NewErrorResponseWithData 创建携带数据的错误响应（如失败的运行报告）
func NewErrorResponseWithData[T any](code int, message string, data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// PipelineSummary Pipeline摘要信息
type PipelineSummary struct {
	Name      string     `json:"name"`
	NodeCount int        `json:"node_count"`
	Workers   int        `json:"workers"`
	Roots     []string   `json:"roots"`
	Leaves    []string   `json:"leaves"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// PipelineDetail Pipeline详细信息
type PipelineDetail struct {
	PipelineSummary
	Nodes  []NodeSummary `json:"nodes"`
	Levels [][]string    `json:"levels"`
}

// NodeSummary 节点摘要信息
type NodeSummary struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Parents  []string       `json:"parents,omitempty"`
	Children []string       `json:"children,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// RunSummary 运行摘要信息
type RunSummary struct {
	RunID      string     `json:"run_id"`
	Pipeline   string     `json:"pipeline"`
	Target     string     `json:"target,omitempty"`
	Mode       string     `json:"mode"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   string     `json:"duration,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total   int  `json:"total"`
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}
