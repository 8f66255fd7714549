package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/events"
	pkgstorage "github.com/LENAX/lazyflow/pkg/storage"
)

const customersCSV = "../../pkg/frame/testdata/customers.csv"

func testConfig(t *testing.T) *config.EngineConfig {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	cfg.Lazyflow.Storage.History = true
	cfg.Lazyflow.Storage.Database.DSN = filepath.Join(t.TempDir(), "history.db")
	cfg.Lazyflow.Server.Host = "127.0.0.1"
	return cfg
}

func writePipelines(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "top.csv")
	top := `
name: top
tasks:
  - {id: customers, kind: read, source: ` + customersCSV + `}
  - {id: first, kind: transform, op: limit, args: [3], depends_on: [customers]}
  - {id: save, kind: write, destination: ` + out + `, depends_on: [first]}
`
	nightly := `
name: nightly
cron: "0 0 2 * * *"
tasks:
  - {id: customers, kind: read, source: ` + customersCSV + `}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.yaml"), []byte(top), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nightly.yaml"), []byte(nightly), 0o644))
	return dir
}

func TestNew_LoadsPipelinesAndSchedules(t *testing.T) {
	a, err := New(testConfig(t), writePipelines(t), "test")
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	names := make([]string, 0)
	for _, p := range a.Registry.List() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"nightly", "top"}, names)
	assert.Equal(t, []string{"nightly"}, a.Scheduler.Registered())
	assert.Equal(t, "127.0.0.1:8080", a.Addr())

	next, err := a.Scheduler.Next("nightly")
	require.NoError(t, err)
	assert.True(t, next.IsZero(), "调度器未启动时没有下一次触发时间")
}

func TestNew_InvalidDefinitionFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\ntasks: []\n"), 0o644))
	_, err := New(testConfig(t), dir, "test")
	assert.Error(t, err)
}

func TestRuntime_RunIsRecordedAndPublished(t *testing.T) {
	a, err := New(testConfig(t), writePipelines(t), "test")
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ch, err := a.Bus.Subscribe(ctx, events.EventRunFinished)
	require.NoError(t, err)

	p, ok := a.Registry.Get("top")
	require.True(t, ok)
	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusSuccess, report.Status)

	select {
	case ev := <-ch:
		assert.Equal(t, report.RunID, ev.RunID)
	case <-ctx.Done():
		t.Fatal("未收到 run.finished 事件")
	}

	saved, err := a.History.GetByID(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusSuccess, saved.Status)
	assert.Equal(t, []string{"customers", "first", "save"}, saved.Order)

	runs, err := a.History.List(ctx, pkgstorage.RunFilter{Pipeline: "top"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNewRuntime_HistoryDisabled(t *testing.T) {
	rt, err := NewRuntime(nil, false)
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.History)
	assert.Len(t, rt.PipelineOptions(), 4)
}

func TestNewRuntime_EmailNotifications(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.Lazyflow.Notifications.Email.Enabled = true
	cfg.Lazyflow.Notifications.Email.SMTPHost = "mail.example.com"
	cfg.Lazyflow.Notifications.Email.From = "lazyflow@example.com"
	cfg.Lazyflow.Notifications.Email.To = []string{"ops@example.com"}
	cfg.ApplyDefaults()

	rt, err := NewRuntime(cfg, false)
	require.NoError(t, err)
	defer rt.Close()
	require.NotNil(t, rt.Plugins)
	assert.Equal(t, []string{"email"}, rt.Plugins.ListPlugins())
	assert.Len(t, rt.PipelineOptions(), 5)
}
