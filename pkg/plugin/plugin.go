package plugin

import (
	"context"
	"time"
)

// Plugin 通知插件接口（对外导出）
type Plugin interface {
	// Name 插件名称
	Name() string
	// Init 初始化插件
	Init(params map[string]string) error
	// Execute 执行插件逻辑
	Execute(ctx context.Context, data PluginData) error
}

// TriggerEvent 插件触发事件类型（对外导出）
type TriggerEvent string

const (
	// 运行事件
	EventRunStarted   TriggerEvent = "run.started"   // 运行开始
	EventRunSucceeded TriggerEvent = "run.succeeded" // 运行成功
	EventRunFailed    TriggerEvent = "run.failed"    // 运行失败
	EventRunCancelled TriggerEvent = "run.cancelled" // 运行被取消或超时

	// 节点事件
	EventNodeFailed TriggerEvent = "node.failed" // 节点执行失败
)

// AllTriggerEvents 全部可绑定的事件
var AllTriggerEvents = []TriggerEvent{
	EventRunStarted, EventRunSucceeded, EventRunFailed, EventRunCancelled, EventNodeFailed,
}

// PluginBinding 插件绑定规则（对外导出）
type PluginBinding struct {
	PluginName string                     // 插件名称
	Event      TriggerEvent               // 触发事件
	Condition  func(data PluginData) bool // 可选：条件函数，满足条件才触发
}

// PluginData 传递给插件的数据（对外导出）
type PluginData struct {
	Event    TriggerEvent
	RunID    string
	Pipeline string
	TaskID   string // 节点事件才有
	Status   string
	Error    string
	Duration time.Duration
	Data     map[string]interface{} // 自定义数据
}
