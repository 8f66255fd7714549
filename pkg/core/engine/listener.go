package engine

import (
	"context"
	"errors"
	"log"
)

// Listener 运行事件监听器（对外导出）
// 并行模式下 OnNodeFinished 会被多个 goroutine 并发调用，实现需自行保证并发安全
type Listener interface {
	OnRunStarted(report *RunReport)
	OnNodeFinished(runID string, node NodeReport)
	OnRunFinished(report *RunReport)
}

// ListenerFuncs 用函数实现 Listener，未设置的回调忽略
type ListenerFuncs struct {
	RunStarted   func(report *RunReport)
	NodeFinished func(runID string, node NodeReport)
	RunFinished  func(report *RunReport)
}

func (l ListenerFuncs) OnRunStarted(report *RunReport) {
	if l.RunStarted != nil {
		l.RunStarted(report)
	}
}

func (l ListenerFuncs) OnNodeFinished(runID string, node NodeReport) {
	if l.NodeFinished != nil {
		l.NodeFinished(runID, node)
	}
}

func (l ListenerFuncs) OnRunFinished(report *RunReport) {
	if l.RunFinished != nil {
		l.RunFinished(report)
	}
}

// notify 调用所有监听器，监听器 panic 不影响运行
func (p *Pipeline) notify(fn func(Listener)) {
	for _, l := range p.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("⚠️ [Pipeline %s] 监听器异常: %v", p.name, r)
				}
			}()
			fn(l)
		}()
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
