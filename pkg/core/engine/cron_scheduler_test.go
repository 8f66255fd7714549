package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/pkg/core/types"
)

func TestCronScheduler_RegisterValidation(t *testing.T) {
	cs := NewCronScheduler(nil)
	p := NewPipeline("nightly", nil)

	assert.Error(t, cs.Register(p, ""))
	assert.Error(t, cs.Register(p, "not a cron"))
	require.NoError(t, cs.Register(p, "0 0 2 * * *"))
	assert.Error(t, cs.Register(p, "@every 1s"), "重复注册")
	assert.Equal(t, []string{"nightly"}, cs.Registered())

	_, err := cs.Next("nightly")
	require.NoError(t, err)
	_, err = cs.Next("missing")
	assert.Error(t, err)

	require.NoError(t, cs.Unregister("nightly"))
	assert.Error(t, cs.Unregister("nightly"))
	assert.Empty(t, cs.Registered())
}

func TestCronScheduler_TriggersRuns(t *testing.T) {
	pr := newProbe()
	p := NewPipeline("every-second", nil)
	require.NoError(t, p.AddNode(pr.node("r", types.KindRead)))

	done := make(chan *RunReport, 4)
	cs := NewCronScheduler(func(report *RunReport, err error) {
		if err == nil {
			done <- report
		}
	})
	require.NoError(t, cs.Register(p, "@every 1s"))
	cs.Start()
	defer cs.Stop()

	select {
	case report := <-done:
		assert.Equal(t, "every-second", report.Pipeline)
		assert.Equal(t, StatusSuccess, report.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("定时任务未在预期时间内触发")
	}
}
