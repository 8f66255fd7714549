package engine

import (
	"sync"
	"time"

	"github.com/LENAX/lazyflow/pkg/core/task"
	"github.com/LENAX/lazyflow/pkg/core/types"
)

// 运行与节点状态
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSuccess   = "SUCCESS"
	StatusFailed    = "FAILED"
	StatusSkipped   = "SKIPPED"
	StatusCancelled = "CANCELLED"
)

// 运行模式
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// NodeReport 单个节点的运行情况（对外导出）
type NodeReport struct {
	TaskID     string        `json:"task_id"`
	Kind       types.Kind    `json:"kind"`
	Status     string        `json:"status"`
	Deferred   int           `json:"deferred"` // 因父节点未就绪被推迟的次数
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// RunReport 一次运行的汇总（对外导出）
type RunReport struct {
	RunID      string        `json:"run_id"`
	Pipeline   string        `json:"pipeline"`
	Target     string        `json:"target,omitempty"`
	Mode       string        `json:"mode"`
	Status     string        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Order      []string      `json:"order"` // 节点实际完成的顺序
	Nodes      []*NodeReport `json:"nodes"` // 按DAG插入顺序
	Error      string        `json:"error,omitempty"`

	mu    sync.Mutex
	index map[string]*NodeReport
	err   error
}

func newRunReport(runID, pipeline, mode string, scope []*task.Node) *RunReport {
	r := &RunReport{
		RunID:     runID,
		Pipeline:  pipeline,
		Mode:      mode,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Nodes:     make([]*NodeReport, 0, len(scope)),
		index:     make(map[string]*NodeReport, len(scope)),
	}
	for _, n := range scope {
		nr := &NodeReport{TaskID: n.ID, Kind: n.Kind, Status: StatusPending}
		r.Nodes = append(r.Nodes, nr)
		r.index[n.ID] = nr
	}
	return r
}

// Node 按ID获取节点报告
func (r *RunReport) Node(id string) *NodeReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index[id]
}

// Err 运行失败时的原始错误
func (r *RunReport) Err() error {
	return r.err
}

func (r *RunReport) deferred(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nr := r.index[id]; nr != nil {
		nr.Deferred++
	}
}

func (r *RunReport) started(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nr := r.index[id]; nr != nil {
		nr.Status = StatusRunning
		nr.StartedAt = time.Now()
	}
}

// finished 记录节点结束，返回节点报告的副本供监听器使用
func (r *RunReport) finished(id string, err error) NodeReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	nr := r.index[id]
	if nr == nil {
		return NodeReport{TaskID: id}
	}
	nr.FinishedAt = time.Now()
	nr.Duration = nr.FinishedAt.Sub(nr.StartedAt)
	if err != nil {
		nr.Status = StatusFailed
		nr.Error = err.Error()
	} else {
		nr.Status = StatusSuccess
		r.Order = append(r.Order, id)
	}
	return *nr
}

func (r *RunReport) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.err = err
	status := StatusSuccess
	switch {
	case err == nil:
	case isCancellation(err):
		status = StatusCancelled
	default:
		status = StatusFailed
	}
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
	for _, nr := range r.Nodes {
		switch nr.Status {
		case StatusPending:
			nr.Status = StatusSkipped
		case StatusRunning:
			nr.Status = StatusCancelled
		}
	}
}
