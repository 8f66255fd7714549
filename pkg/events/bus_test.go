package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/pkg/core/builder"
	"github.com/LENAX/lazyflow/pkg/core/engine"
)

const customersCSV = "../frame/testdata/customers.csv"

func collect(t *testing.T, ch <-chan *Event, n int) []*Event {
	t.Helper()
	var got []*Event
	timeout := time.After(3 * time.Second)
	for len(got) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("只收到 %d 个事件，期望 %d 个", len(got), n)
		}
	}
	return got
}

func TestBus_PublishesRunLifecycle(t *testing.T) {
	bus := NewBus(false)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	p, err := builder.NewPipelineBuilder("events", nil).
		Read("customers", customersCSV, "", nil).
		Transform("top", "limit", []any{3}, nil, "customers").
		WithOptions(engine.WithListener(bus)).
		Build()
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	got := collect(t, ch, 4)
	require.Len(t, got, 4)
	assert.Equal(t, EventRunStarted, got[0].Type)
	assert.Equal(t, EventNodeFinished, got[1].Type)
	assert.Equal(t, "customers", got[1].Node.TaskID)
	assert.Equal(t, engine.StatusSuccess, got[1].Node.Status)
	assert.Equal(t, "top", got[2].Node.TaskID)
	assert.Equal(t, EventRunFinished, got[3].Type)
	assert.Equal(t, engine.StatusSuccess, got[3].Run.Status)
	assert.Equal(t, []string{"customers", "top"}, got[3].Run.Order)
	for _, ev := range got {
		assert.Equal(t, report.RunID, ev.RunID)
	}
	assert.Equal(t, "events", got[0].Pipeline)
}

func TestBus_SubscribeFiltersTypes(t *testing.T) {
	bus := NewBus(false)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, EventRunFinished)
	require.NoError(t, err)

	p, err := builder.NewPipelineBuilder("failing", nil).
		Read("missing", "does-not-exist.csv", "", nil).
		WithOptions(engine.WithListener(bus)).
		Build()
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.Error(t, err)

	got := collect(t, ch, 1)
	require.Len(t, got, 1)
	assert.Equal(t, EventRunFinished, got[0].Type)
	assert.Equal(t, engine.StatusFailed, got[0].Run.Status)
	assert.NotEmpty(t, got[0].Run.Error)
}

func TestBus_ChannelClosedWithContext(t *testing.T) {
	bus := NewBus(false)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, EventNodeFinished)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("订阅通道未关闭")
	}
}

func TestParseEventType(t *testing.T) {
	et, ok := ParseEventType("node.finished")
	assert.True(t, ok)
	assert.Equal(t, EventNodeFinished, et)
	_, ok = ParseEventType("node.started")
	assert.False(t, ok)
}

func TestNewNodeEvent_CopiesReport(t *testing.T) {
	nr := engine.NodeReport{TaskID: "a", Status: engine.StatusSuccess}
	ev := NewNodeEvent("run-1", nr)
	nr.Status = engine.StatusFailed
	assert.Equal(t, engine.StatusSuccess, ev.Node.Status)
}

func TestBus_SubscribeDroppingNeverBlocksRun(t *testing.T) {
	bus := NewBus(false, WithSubscriberBuffer(1))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 订阅后不读取
	ch, err := bus.SubscribeDropping(ctx, EventNodeFinished)
	require.NoError(t, err)

	p, err := builder.NewPipelineBuilder("slow-reader", nil).
		Read("customers", customersCSV, "", nil).
		Transform("top", "limit", []any{5}, nil, "customers").
		Transform("first", "limit", []any{1}, nil, "top").
		WithOptions(engine.WithListener(bus)).
		Build()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("缓冲已满的订阅者阻塞了运行")
	}

	got := collect(t, ch, 1)
	assert.Equal(t, "customers", got[0].Node.TaskID)
	select {
	case ev := <-ch:
		t.Fatalf("缓冲之外的事件应被丢弃，收到 %s", ev.Node.TaskID)
	default:
	}
}
