package storage

import (
	"context"
	"log"
	"time"

	"github.com/LENAX/lazyflow/pkg/core/engine"
)

// Recorder 把运行报告写入运行历史（对外导出）
// 实现 engine.Listener：运行开始时写入 RUNNING 记录，结束时覆盖为最终结果
type Recorder struct {
	repo    RunRepository
	timeout time.Duration
}

var _ engine.Listener = (*Recorder)(nil)

// NewRecorder 创建运行历史记录器
func NewRecorder(repo RunRepository) *Recorder {
	return &Recorder{repo: repo, timeout: 10 * time.Second}
}

func (r *Recorder) OnRunStarted(report *engine.RunReport) {
	r.save(report)
}

// OnNodeFinished 节点结果随运行结束一次性写入
func (r *Recorder) OnNodeFinished(string, engine.NodeReport) {}

func (r *Recorder) OnRunFinished(report *engine.RunReport) {
	r.save(report)
}

func (r *Recorder) save(report *engine.RunReport) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.repo.Save(ctx, report); err != nil {
		log.Printf("⚠️ [运行历史] 保存失败: RunID=%s, Error=%v", report.RunID, err)
	}
}
