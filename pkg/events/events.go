// Package events 把 Pipeline 运行事件发布到进程内事件总线
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/lazyflow/pkg/core/engine"
)

// EventType 事件类型
type EventType string

const (
	EventRunStarted   EventType = "run.started"   // 运行开始
	EventNodeFinished EventType = "node.finished" // 节点结束（成功或失败）
	EventRunFinished  EventType = "run.finished"  // 运行结束
)

// AllEventTypes 全部事件类型
var AllEventTypes = []EventType{EventRunStarted, EventNodeFinished, EventRunFinished}

// ParseEventType 解析事件类型
func ParseEventType(s string) (EventType, bool) {
	for _, t := range AllEventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Event 运行事件
// 运行事件携带 Run，节点事件携带 Node
type Event struct {
	ID        string             `json:"id"`
	Type      EventType          `json:"type"`
	RunID     string             `json:"run_id"`
	Pipeline  string             `json:"pipeline,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Node      *engine.NodeReport `json:"node,omitempty"`
	Run       *engine.RunReport  `json:"run,omitempty"`
}

// NewRunEvent 创建运行级事件
func NewRunEvent(eventType EventType, report *engine.RunReport) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     report.RunID,
		Pipeline:  report.Pipeline,
		Timestamp: time.Now(),
		Run:       report,
	}
}

// NewNodeEvent 创建节点事件
func NewNodeEvent(runID string, node engine.NodeReport) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      EventNodeFinished,
		RunID:     runID,
		Timestamp: time.Now(),
		Node:      &node,
	}
}
