package dao

import (
	"database/sql"
	"time"
)

// RunDAO lazyflow_runs 表的数据访问对象（内部使用）
type RunDAO struct {
	ID         string         `db:"id"`
	Pipeline   string         `db:"pipeline"`
	Target     string         `db:"target"`
	Mode       string         `db:"mode"`
	Status     string         `db:"status"`
	StartedAt  time.Time      `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
	DurationMs int64          `db:"duration_ms"`
	NodeOrder  string         `db:"node_order"` // JSON数组，节点完成顺序
	ErrorMsg   sql.NullString `db:"error_msg"`
}

// RunNodeDAO lazyflow_run_nodes 表的数据访问对象（内部使用）
type RunNodeDAO struct {
	RunID      string         `db:"run_id"`
	TaskID     string         `db:"task_id"`
	Seq        int            `db:"seq"` // DAG插入顺序
	Kind       string         `db:"kind"`
	Status     string         `db:"status"`
	Deferred   int            `db:"deferred"`
	StartedAt  sql.NullTime   `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
	DurationMs int64          `db:"duration_ms"`
	ErrorMsg   sql.NullString `db:"error_msg"`
}
