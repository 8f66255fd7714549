package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/types"
	"github.com/LENAX/lazyflow/pkg/storage/dao"
)

const (
	runsTable     = "lazyflow_runs"
	runNodesTable = "lazyflow_run_nodes"
	defaultLimit  = 50
)

var runColumns = []string{"id", "pipeline", "target", "mode", "status", "started_at", "finished_at", "duration_ms", "node_order", "error_msg"}

var runNodeColumns = []string{"run_id", "task_id", "seq", "kind", "status", "deferred", "started_at", "finished_at", "duration_ms", "error_msg"}

// SQLRunRepo 基于 sqlx 的运行历史Repository（对外导出）
// 三种数据库共用实现，差异由 Dialect 处理
type SQLRunRepo struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ RunRepository = (*SQLRunRepo)(nil)

// NewSQLRunRepo 创建运行历史Repository并初始化表结构（对外导出）
func NewSQLRunRepo(db *sqlx.DB, dialect Dialect) (*SQLRunRepo, error) {
	repo := &SQLRunRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// OpenRunRepo 按方言打开数据库并创建Repository（对外导出）
func OpenRunRepo(dialect Dialect, dsn string) (*SQLRunRepo, error) {
	db, err := sqlx.Open(dialect.DriverName(), dialect.NormalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	for _, stmt := range dialect.ConfigureDB() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("配置%s失败: %w", dialect.Name(), err)
		}
	}
	repo, err := NewSQLRunRepo(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// GetDB 获取底层数据库连接（对外导出）
func (r *SQLRunRepo) GetDB() *sqlx.DB {
	return r.db
}

// Close 关闭数据库连接（对外导出）
func (r *SQLRunRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (r *SQLRunRepo) initSchema() error {
	createRunsSQL := `
	CREATE TABLE IF NOT EXISTS lazyflow_runs (
		id VARCHAR(64) PRIMARY KEY,
		pipeline VARCHAR(255) NOT NULL,
		target VARCHAR(255) NOT NULL DEFAULT '',
		mode VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		node_order TEXT NOT NULL,
		error_msg TEXT
	)`

	createRunNodesSQL := `
	CREATE TABLE IF NOT EXISTS lazyflow_run_nodes (
		run_id VARCHAR(64) NOT NULL,
		task_id VARCHAR(255) NOT NULL,
		seq INTEGER NOT NULL,
		kind VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		deferred INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME,
		finished_at DATETIME,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		error_msg TEXT,
		PRIMARY KEY (run_id, task_id)
	)`

	for _, schema := range []string{createRunsSQL, createRunNodesSQL} {
		if _, err := r.db.Exec(r.dialect.CreateTableSQL(schema)); err != nil {
			return err
		}
	}
	indexes := []struct {
		name    string
		table   string
		columns []string
	}{
		{"idx_lazyflow_runs_pipeline", runsTable, []string{"pipeline", "started_at"}},
		{"idx_lazyflow_runs_status", runsTable, []string{"status"}},
	}
	for _, idx := range indexes {
		stmt := r.dialect.CreateIndexSQL(idx.name, idx.table, idx.columns...)
		if _, err := r.db.Exec(stmt); err != nil && !r.dialect.IsDuplicateIndex(err) {
			return err
		}
	}
	return nil
}

// Save 在一个事务内覆盖保存运行记录与全部节点记录
func (r *SQLRunRepo) Save(ctx context.Context, report *engine.RunReport) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("运行记录缺少RunID")
	}
	run, nodes, err := toDAO(report)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	upsert := r.dialect.UpsertSQL(runsTable, runColumns, []string{"id"}, runColumns[1:])
	if _, err := tx.NamedExecContext(ctx, upsert, run); err != nil {
		return fmt.Errorf("保存运行记录失败: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+runNodesTable+" WHERE run_id = ?"), run.ID); err != nil {
		return fmt.Errorf("清理节点记录失败: %w", err)
	}
	if len(nodes) > 0 {
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
			runNodesTable, strings.Join(runNodeColumns, ", "), strings.Join(runNodeColumns, ", :"))
		if _, err := tx.NamedExecContext(ctx, insert, nodes); err != nil {
			return fmt.Errorf("保存节点记录失败: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetByID 查询运行记录（含节点记录）
func (r *SQLRunRepo) GetByID(ctx context.Context, runID string) (*engine.RunReport, error) {
	var run dao.RunDAO
	query := r.db.Rebind("SELECT " + strings.Join(runColumns, ", ") + " FROM " + runsTable + " WHERE id = ?")
	if err := r.db.GetContext(ctx, &run, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}

	var nodes []dao.RunNodeDAO
	query = r.db.Rebind("SELECT " + strings.Join(runNodeColumns, ", ") + " FROM " + runNodesTable + " WHERE run_id = ? ORDER BY seq")
	if err := r.db.SelectContext(ctx, &nodes, query, runID); err != nil {
		return nil, fmt.Errorf("查询节点记录失败: %w", err)
	}
	return fromDAO(run, nodes)
}

// List 按开始时间倒序查询
func (r *SQLRunRepo) List(ctx context.Context, filter RunFilter) ([]*engine.RunReport, error) {
	var (
		where []string
		args  []any
	)
	if filter.Pipeline != "" {
		where = append(where, "pipeline = ?")
		args = append(args, filter.Pipeline)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, strings.ToUpper(filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(runColumns, ", ") + " FROM " + runsTable)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY started_at DESC, id LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	var runs []dao.RunDAO
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	reports := make([]*engine.RunReport, 0, len(runs))
	for _, run := range runs {
		report, err := fromDAO(run, nil)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Delete 删除运行记录及其节点记录
func (r *SQLRunRepo) Delete(ctx context.Context, runID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+runNodesTable+" WHERE run_id = ?"), runID); err != nil {
		return fmt.Errorf("删除节点记录失败: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+runsTable+" WHERE id = ?"), runID)
	if err != nil {
		return fmt.Errorf("删除运行记录失败: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return tx.Commit()
}

func toDAO(report *engine.RunReport) (dao.RunDAO, []dao.RunNodeDAO, error) {
	order, err := json.Marshal(report.Order)
	if err != nil {
		return dao.RunDAO{}, nil, fmt.Errorf("序列化节点顺序失败: %w", err)
	}
	if report.Order == nil {
		order = []byte("[]")
	}
	run := dao.RunDAO{
		ID:         report.RunID,
		Pipeline:   report.Pipeline,
		Target:     report.Target,
		Mode:       report.Mode,
		Status:     report.Status,
		StartedAt:  report.StartedAt.UTC(),
		FinishedAt: nullTime(report.FinishedAt),
		DurationMs: report.Duration.Milliseconds(),
		NodeOrder:  string(order),
		ErrorMsg:   nullString(report.Error),
	}
	nodes := make([]dao.RunNodeDAO, 0, len(report.Nodes))
	for i, nr := range report.Nodes {
		nodes = append(nodes, dao.RunNodeDAO{
			RunID:      report.RunID,
			TaskID:     nr.TaskID,
			Seq:        i,
			Kind:       nr.Kind.String(),
			Status:     nr.Status,
			Deferred:   nr.Deferred,
			StartedAt:  nullTime(nr.StartedAt),
			FinishedAt: nullTime(nr.FinishedAt),
			DurationMs: nr.Duration.Milliseconds(),
			ErrorMsg:   nullString(nr.Error),
		})
	}
	return run, nodes, nil
}

func fromDAO(run dao.RunDAO, nodes []dao.RunNodeDAO) (*engine.RunReport, error) {
	report := &engine.RunReport{
		RunID:     run.ID,
		Pipeline:  run.Pipeline,
		Target:    run.Target,
		Mode:      run.Mode,
		Status:    run.Status,
		StartedAt: run.StartedAt,
		Duration:  time.Duration(run.DurationMs) * time.Millisecond,
		Error:     run.ErrorMsg.String,
	}
	if run.FinishedAt.Valid {
		report.FinishedAt = run.FinishedAt.Time
	}
	if err := json.Unmarshal([]byte(run.NodeOrder), &report.Order); err != nil {
		return nil, fmt.Errorf("解析节点顺序失败: %w", err)
	}
	for _, n := range nodes {
		nr := &engine.NodeReport{
			TaskID:   n.TaskID,
			Kind:     types.Kind(n.Kind),
			Status:   n.Status,
			Deferred: n.Deferred,
			Duration: time.Duration(n.DurationMs) * time.Millisecond,
			Error:    n.ErrorMsg.String,
		}
		if n.StartedAt.Valid {
			nr.StartedAt = n.StartedAt.Time
		}
		if n.FinishedAt.Valid {
			nr.FinishedAt = n.FinishedAt.Time
		}
		report.Nodes = append(report.Nodes, nr)
	}
	return report, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
