package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/frame"
)

const customersCSV = "../frame/testdata/customers.csv"

func TestLoadEngineConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "lazyflow", cfg.Lazyflow.General.InstanceName)
	assert.Equal(t, "sqlite", cfg.GetDatabaseType())
	assert.Equal(t, 1, cfg.GetWorkerConcurrency())
	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.False(t, cfg.IsDebug())
}

func TestParseEngineConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("LAZYFLOW_TEST_DSN", "file:history.db")
	data := []byte(`
lazyflow:
  general:
    instance_name: worker-1
    log_level: debug
  storage:
    database:
      type: sqlite
      dsn: ${LAZYFLOW_TEST_DSN}
    history: true
  execution:
    worker_concurrency: 4
    run_timeout: 90s
  server:
    host: 127.0.0.1
    port: 9090
`)
	cfg, err := ParseEngineConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "file:history.db", cfg.GetDatabaseDSN())
	assert.True(t, cfg.Lazyflow.Storage.History)
	assert.Equal(t, 4, cfg.GetWorkerConcurrency())
	assert.Equal(t, 90*time.Second, cfg.Lazyflow.Execution.RunTimeout)
	assert.Equal(t, "127.0.0.1:9090", cfg.GetServerAddr())
	assert.True(t, cfg.IsDebug())
	assert.Equal(t, 10, cfg.Lazyflow.Storage.Database.MaxOpenConns, "默认值")
}

func TestParseEngineConfig_Invalid(t *testing.T) {
	_, err := ParseEngineConfig([]byte("lazyflow:\n  general:\n    log_level: verbose\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lazyflow.general.log_level")

	_, err = ParseEngineConfig([]byte("lazyflow:\n  storage:\n    database:\n      type: oracle\n"))
	assert.Error(t, err)

	_, err = ParseEngineConfig([]byte("lazyflow:\n  unknown_section: 1\n"))
	assert.Error(t, err, "未知字段")
}

func TestParseEngineConfig_EmailNotifications(t *testing.T) {
	cfg, err := ParseEngineConfig([]byte(`
lazyflow:
  notifications:
    email:
      enabled: true
      smtp_host: mail.example.com
      from: lazyflow@example.com
      to: [ops@example.com]
`))
	require.NoError(t, err)
	email := cfg.Lazyflow.Notifications.Email
	assert.Equal(t, 25, email.SMTPPort)
	assert.Equal(t, []string{"run.failed"}, email.On)
	assert.Equal(t, 30*time.Second, cfg.Lazyflow.Notifications.Timeout)

	_, err = ParseEngineConfig([]byte("lazyflow:\n  notifications:\n    email:\n      enabled: true\n      from: a@example.com\n      to: [b@example.com]\n"))
	assert.Error(t, err, "缺少 smtp_host")

	_, err = ParseEngineConfig([]byte("lazyflow:\n  notifications:\n    email:\n      on: [run.paused]\n"))
	assert.Error(t, err, "未知事件")
}

func TestLoadEnv_IgnoresMissingFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LAZYFLOW_TEST_FROM_DOTENV=yes\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LAZYFLOW_TEST_FROM_DOTENV") })

	LoadEnv(filepath.Join(dir, "missing.env"), envFile)
	assert.Equal(t, "yes", os.Getenv("LAZYFLOW_TEST_FROM_DOTENV"))
}

func cyprusDefinition(out string) string {
	return `
name: cyprus
description: Cyprus customers sorted by last name
workers: 2
tasks:
  - id: customers
    kind: read
    source: ` + customersCSV + `
  - id: only_cyprus
    kind: transform
    op: filter
    options:
      condition:
        Country:
          EQ: Cyprus
    depends_on: [customers]
  - id: names
    kind: transform
    op: select
    args: [Index, Last Name, Country]
    depends_on: [only_cyprus]
  - id: save
    kind: write
    destination: ` + out + `
    depends_on: [names]
`
}

func TestBuildPipeline_RunsDefinition(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cyprus.csv")
	def, err := ParsePipelineDefinition([]byte(cyprusDefinition(out)))
	require.NoError(t, err)
	assert.Len(t, def.Tasks, 4)

	p, err := BuildPipeline(def, nil)
	require.NoError(t, err)
	assert.Equal(t, "cyprus", p.Name())
	assert.Equal(t, 2, p.Workers())

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StatusSuccess, report.Status)

	lf, err := frame.NewEngine(nil).Read(context.Background(), out, "", nil)
	require.NoError(t, err)
	tbl, err := lf.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.Len())
	assert.Equal(t, []string{"Index", "Last Name", "Country"}, tbl.Columns)
}

func TestParsePipelineDefinition_Invalid(t *testing.T) {
	cases := map[string]string{
		"缺少名称":     "tasks:\n  - {id: a, kind: read, source: a.csv}\n",
		"空任务":      "name: p\ntasks: []\n",
		"未知类型":     "name: p\ntasks:\n  - {id: a, kind: scan, source: a.csv}\n",
		"read缺少源":  "name: p\ntasks:\n  - {id: a, kind: read}\n",
		"ID重复":     "name: p\ntasks:\n  - {id: a, kind: read, source: a.csv}\n  - {id: a, kind: read, source: b.csv}\n",
		"依赖不存在":    "name: p\ntasks:\n  - {id: a, kind: read, source: a.csv}\n  - {id: w, kind: write, destination: o.csv, depends_on: [x]}\n",
		"merge依赖不足": "name: p\ntasks:\n  - {id: a, kind: read, source: a.csv}\n  - {id: m, kind: merge, options: {on: id}, depends_on: [a]}\n",
		"cron无效":   "name: p\ncron: every day\ntasks:\n  - {id: a, kind: read, source: a.csv}\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePipelineDefinition([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestBuildPipeline_UnsupportedFormat(t *testing.T) {
	def := &PipelineDefinition{
		Name:  "bad",
		Tasks: []TaskDefinition{{ID: "r", Kind: "read", Source: "data.parquet"}},
	}
	_, err := BuildPipeline(def, nil)
	assert.Error(t, err)
}

func TestLoadPipelineDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(cyprusDefinition(out)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"),
		[]byte("name: only-read\ntasks:\n  - {id: a, kind: read, source: a.csv}\n"), 0o644))

	defs, err := LoadPipelineDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "only-read", defs[0].Name)
	assert.Equal(t, "cyprus", defs[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte(cyprusDefinition(out)), 0o644))
	_, err = LoadPipelineDir(dir)
	assert.Error(t, err, "名称重复")
}
