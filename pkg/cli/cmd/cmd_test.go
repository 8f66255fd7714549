package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/internal/storage"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	pkgstorage "github.com/LENAX/lazyflow/pkg/storage"
)

const customersCSV = "../../frame/testdata/customers.csv"

// execute 重置全局参数后执行命令
func execute(t *testing.T, args ...string) error {
	t.Helper()
	color.NoColor = true
	configPath, outputJSON = "", false
	runTarget, runWorkers, runTimeout, runNoHistory, runQuiet = "", 0, 0, false, false
	historyPipeline, historyStatus, historyLimit, historyOffset = "", "", 20, 0
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func cyprusPipeline(out string) string {
	return `
name: cyprus
tasks:
  - {id: customers, kind: read, source: ` + customersCSV + `}
  - id: only_cyprus
    kind: transform
    op: filter
    options: {condition: {Country: {EQ: Cyprus}}}
    depends_on: [customers]
  - {id: save, kind: write, destination: ` + out + `, depends_on: [only_cyprus]}
`
}

func historyConfig(t *testing.T, dir string) string {
	return writeFile(t, dir, "engine.yaml", `
lazyflow:
  storage:
    database:
      type: sqlite
      dsn: `+filepath.Join(dir, "history.db")+`
    history: true
`)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "cyprus.yaml", cyprusPipeline(filepath.Join(dir, "out.csv")))
	cyclic := writeFile(t, dir, "cyclic.yaml", `
name: cyclic
tasks:
  - {id: a, kind: transform, op: limit, args: [1], depends_on: [b]}
  - {id: b, kind: transform, op: limit, args: [1], depends_on: [a]}
`)

	assert.NoError(t, execute(t, "validate", valid))
	assert.Error(t, execute(t, "validate", valid, cyclic))
	assert.Error(t, execute(t, "validate", filepath.Join(dir, "missing.yaml")))
	assert.NoError(t, execute(t, "validate", "--json", valid))
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "cyprus.yaml", cyprusPipeline(filepath.Join(dir, "out.csv")))
	assert.NoError(t, execute(t, "plan", valid))
	assert.NoError(t, execute(t, "plan", "--json", valid))
	assert.Error(t, execute(t, "plan"))
}

func TestRun_WritesOutputAndHistory(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	def := writeFile(t, dir, "cyprus.yaml", cyprusPipeline(out))
	cfg := historyConfig(t, dir)

	require.NoError(t, execute(t, "run", def, "--config", cfg, "--workers", "2"))
	_, err := os.Stat(out)
	require.NoError(t, err)

	factory, err := storage.NewDatabaseFactory("sqlite", filepath.Join(dir, "history.db"), storage.PoolConfig{})
	require.NoError(t, err)
	defer factory.Close()
	runs, err := factory.RunRepository().List(context.Background(), pkgstorage.RunFilter{Pipeline: "cyprus"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, engine.StatusSuccess, runs[0].Status)
	assert.Equal(t, engine.ModeParallel, runs[0].Mode)

	assert.NoError(t, execute(t, "history", "--config", cfg))
	assert.NoError(t, execute(t, "history", "show", runs[0].RunID, "--config", cfg))
	assert.NoError(t, execute(t, "history", "delete", runs[0].RunID, "--config", cfg))
	assert.Error(t, execute(t, "history", "show", runs[0].RunID, "--config", cfg))
}

func TestRun_TargetAndFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	def := writeFile(t, dir, "cyprus.yaml", cyprusPipeline(out))

	require.NoError(t, execute(t, "run", def, "--no-history", "--target", "only_cyprus", "-q"))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "目标之外的节点不运行")

	broken := writeFile(t, dir, "broken.yaml", `
name: broken
tasks:
  - {id: customers, kind: read, source: `+filepath.Join(dir, "absent.csv")+`}
`)
	assert.Error(t, execute(t, "run", broken, "--no-history", "--json"))
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cyprus.yaml", cyprusPipeline(filepath.Join(dir, "out.csv")))
	single := writeFile(t, t.TempDir(), "nightly.yaml", "name: nightly\ncron: \"@every 1h\"\ntasks:\n  - {id: a, kind: read, source: a.csv}\n")

	defs, err := loadDefinitions([]string{dir, single})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "cyprus", defs[0].Name)
	assert.Equal(t, "nightly", defs[1].Name)

	_, err = loadDefinitions([]string{filepath.Join(dir, "none")})
	assert.Error(t, err)
}
