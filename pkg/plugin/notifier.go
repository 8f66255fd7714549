package plugin

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LENAX/lazyflow/pkg/core/engine"
)

// Notifier 把运行事件转成插件触发（对外导出）
// 实现 engine.Listener；插件在运行的协程内同步执行，超时由 timeout 限制
type Notifier struct {
	manager   PluginManager
	timeout   time.Duration
	pipelines sync.Map // runID -> pipeline，节点事件需要
}

var _ engine.Listener = (*Notifier)(nil)

// NewNotifier 创建通知器，timeout<=0 时使用 30s
func NewNotifier(manager PluginManager, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{manager: manager, timeout: timeout}
}

func (n *Notifier) OnRunStarted(report *engine.RunReport) {
	n.pipelines.Store(report.RunID, report.Pipeline)
	n.trigger(EventRunStarted, runData(report))
}

func (n *Notifier) OnNodeFinished(runID string, node engine.NodeReport) {
	if node.Status != engine.StatusFailed {
		return
	}
	pipeline, _ := n.pipelines.Load(runID)
	name, _ := pipeline.(string)
	n.trigger(EventNodeFailed, PluginData{
		RunID:    runID,
		Pipeline: name,
		TaskID:   node.TaskID,
		Status:   node.Status,
		Error:    node.Error,
		Duration: node.Duration,
		Data:     map[string]interface{}{"kind": node.Kind.String()},
	})
}

func (n *Notifier) OnRunFinished(report *engine.RunReport) {
	n.pipelines.Delete(report.RunID)
	event := EventRunSucceeded
	switch report.Status {
	case engine.StatusFailed:
		event = EventRunFailed
	case engine.StatusCancelled:
		event = EventRunCancelled
	}
	n.trigger(event, runData(report))
}

func (n *Notifier) trigger(event TriggerEvent, data PluginData) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.manager.Trigger(ctx, event, data); err != nil {
		log.Printf("⚠️ [插件] 事件 %s 处理失败: RunID=%s, Error=%v", event, data.RunID, err)
	}
}

func runData(report *engine.RunReport) PluginData {
	data := PluginData{
		RunID:    report.RunID,
		Pipeline: report.Pipeline,
		Status:   report.Status,
		Error:    report.Error,
		Duration: report.Duration,
		Data:     map[string]interface{}{"mode": report.Mode},
	}
	if report.Target != "" {
		data.Data["target"] = report.Target
	}
	return data
}
