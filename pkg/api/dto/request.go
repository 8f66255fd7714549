package dto

// RunPipelineRequest 触发运行请求
// Target 非空时只运行该节点及其祖先
type RunPipelineRequest struct {
	Target string `json:"target" binding:"omitempty"`
}

// HistoryQueryRequest 运行历史查询请求
type HistoryQueryRequest struct {
	Pipeline string `form:"pipeline" binding:"omitempty"`
	Status   string `form:"status" binding:"omitempty,oneof=RUNNING SUCCESS FAILED CANCELLED running success failed cancelled"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// EventsQueryRequest 事件订阅请求，Types 为逗号分隔的事件类型
type EventsQueryRequest struct {
	Types string `form:"types" binding:"omitempty"`
}

// GetDefaultLimit 获取默认limit
func (r *HistoryQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}
