package frame

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLFormat 关系数据库表，source/dest 为 DSN（sqlite 为文件路径）
//
// 读取参数: table 或 query
// 写入参数: table（必填）, if_exists(replace|append|fail，默认 replace)
func SQLFormat(name, driver string, extensions ...string) Format {
	s := &sqlStore{driver: driver}
	return Format{
		Name:       name,
		Extensions: extensions,
		Scan:       s.scan,
		Sink:       s.sink,
		Local:      driver == "sqlite3",
	}
}

type sqlStore struct {
	driver string
}

func (s *sqlStore) quote(ident string) string {
	if s.driver == "mysql" {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (s *sqlStore) connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, s.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

func (s *sqlStore) scan(ctx context.Context, source string, opts Options) (*Table, error) {
	query := opts.String("query", "")
	if query == "" {
		table := opts.String("table", "")
		if table == "" {
			return nil, fmt.Errorf("需要 table 或 query 参数")
		}
		query = "SELECT * FROM " + s.quote(table)
	}

	db, err := s.connect(ctx, source)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	t := &Table{Columns: columns}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		t.Rows = append(t.Rows, values)
	}
	return t, rows.Err()
}

func (s *sqlStore) sink(ctx context.Context, t *Table, dest string, opts Options) error {
	table := opts.String("table", "")
	if table == "" {
		return fmt.Errorf("写入数据库需要 table 参数")
	}
	ifExists := strings.ToLower(opts.String("if_exists", "replace"))
	switch ifExists {
	case "replace", "append", "fail":
	default:
		return fmt.Errorf("不支持的 if_exists: %q", ifExists)
	}
	if s.driver == "sqlite3" {
		if dir := filepath.Dir(dest); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
	}

	db, err := s.connect(ctx, dest)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if ifExists == "replace" {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.quote(table)); err != nil {
			return fmt.Errorf("删除已有表失败: %w", err)
		}
	}
	create := "CREATE TABLE "
	if ifExists == "append" {
		create += "IF NOT EXISTS "
	}
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = s.quote(c) + " " + s.columnType(t, i)
	}
	ddl := fmt.Sprintf("%s%s (%s)", create, s.quote(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("建表失败: %w", err)
	}

	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = s.quote(c)
		marks[i] = "?"
	}
	insert := tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.quote(table), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range t.Rows {
		args := make([]any, len(row))
		for i, v := range row {
			switch v.(type) {
			case nil, int64, float64, string, bool:
				args[i] = v
			default:
				args[i] = FormatValue(v)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("写入数据失败: %w", err)
		}
	}
	return tx.Commit()
}

// columnType 根据列中第一个非空值推断列类型
func (s *sqlStore) columnType(t *Table, col int) string {
	for _, row := range t.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int64:
			return "BIGINT"
		case float64:
			if s.driver == "postgres" {
				return "DOUBLE PRECISION"
			}
			return "DOUBLE"
		case bool:
			return "BOOLEAN"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}
