package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/lazyflow/pkg/core/builder"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/task"
	"github.com/LENAX/lazyflow/pkg/events"
	"github.com/LENAX/lazyflow/pkg/frame"
	"github.com/LENAX/lazyflow/pkg/metrics"
	"github.com/LENAX/lazyflow/pkg/storage"
	"github.com/LENAX/lazyflow/pkg/storage/sqlite"
)

const customersCSV = "../frame/testdata/customers.csv"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router  http.Handler
	history storage.RunRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := sqlite.NewRunRepoFromDSN(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := events.NewBus(false)
	t.Cleanup(func() { bus.Close() })
	collector := metrics.NewCollector(false)
	listeners := []engine.Option{
		engine.WithListener(storage.NewRecorder(repo)),
		engine.WithListener(bus),
		engine.WithListener(collector),
	}

	registry := engine.NewRegistry()
	out := filepath.Join(t.TempDir(), "top.csv")
	top, err := builder.NewPipelineBuilder("top", nil).
		Read("customers", customersCSV, "", nil).
		Transform("first", "limit", []any{3}, nil, "customers").
		Write("save", out, "", nil, "first").
		WithOptions(listeners...).
		Build()
	require.NoError(t, err)
	require.NoError(t, registry.Register(top))

	broken, err := builder.NewPipelineBuilder("broken", nil).
		Read("missing", "no-such-file.csv", "", nil).
		WithOptions(listeners...).
		Build()
	require.NoError(t, err)
	require.NoError(t, registry.Register(broken))

	merge, err := task.NewMerge(nil, "joined", frame.Options{"on": "Index"})
	require.NoError(t, err)
	incomplete, err := builder.NewPipelineBuilder("incomplete", nil).
		Read("left", customersCSV, "", nil).
		Add(merge, "left").
		Build()
	require.NoError(t, err)
	require.NoError(t, registry.Register(incomplete))

	router := SetupRouter(Dependencies{
		Registry: registry,
		History:  repo,
		Bus:      bus,
		Metrics:  collector,
	}, "test")
	return &testServer{router: router, history: repo}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Data), `"healthy"`)
}

func TestPipelines_ListAndGet(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/pipelines", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int `json:"total"`
		Items []struct {
			Name  string   `json:"name"`
			Roots []string `json:"roots"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "broken", list.Items[0].Name)

	w, env = s.do(t, http.MethodGet, "/api/v1/pipelines/top", "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Levels [][]string `json:"levels"`
		Nodes  []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, [][]string{{"customers"}, {"first"}, {"save"}}, detail.Levels)
	require.Len(t, detail.Nodes, 3)
	assert.Equal(t, "write", detail.Nodes[2].Kind)

	w, _ = s.do(t, http.MethodGet, "/api/v1/pipelines/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPipelines_GetWhileRightMergeRuns(t *testing.T) {
	merge, err := task.NewMerge(nil, "joined", frame.Options{"on": "Index", "how": "right"})
	require.NoError(t, err)
	p, err := builder.NewPipelineBuilder("right-join", nil).
		Read("left", customersCSV, "", nil).
		Read("right", customersCSV, "", nil).
		Add(merge, "left", "right").
		Write("save", filepath.Join(t.TempDir(), "joined.csv"), "", nil, "joined").
		Build()
	require.NoError(t, err)
	registry := engine.NewRegistry()
	require.NoError(t, registry.Register(p))
	s := &testServer{router: SetupRouter(Dependencies{Registry: registry}, "test")}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			w, _ := s.do(t, http.MethodPost, "/api/v1/pipelines/right-join/runs", "")
			assert.Equal(t, http.StatusOK, w.Code)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			w, env := s.do(t, http.MethodGet, "/api/v1/pipelines/right-join", "")
			if !assert.Equal(t, http.StatusOK, w.Code) {
				return
			}
			var detail struct {
				Nodes []struct {
					ID      string         `json:"id"`
					Options map[string]any `json:"options"`
				} `json:"nodes"`
			}
			if assert.NoError(t, json.Unmarshal(env.Data, &detail)) {
				for _, n := range detail.Nodes {
					if n.ID == "joined" {
						assert.Equal(t, "right", n.Options["how"])
					}
				}
			}
		}
	}()
	wg.Wait()
}

func TestRunPipeline_RecordsHistory(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/pipelines/top/runs", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report engine.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, engine.StatusSuccess, report.Status)
	assert.Equal(t, []string{"customers", "first", "save"}, report.Order)

	w, env = s.do(t, http.MethodGet, "/api/v1/runs?pipeline=top", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs struct {
		Items []struct {
			RunID  string `json:"run_id"`
			Status string `json:"status"`
		} `json:"items"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	require.Len(t, runs.Items, 1)
	assert.Equal(t, report.RunID, runs.Items[0].RunID)
	assert.False(t, runs.HasMore)

	w, env = s.do(t, http.MethodGet, "/api/v1/runs/"+report.RunID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stored engine.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Len(t, stored.Nodes, 3)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/runs/"+report.RunID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/runs/"+report.RunID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunPipeline_Target(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/v1/pipelines/top/runs", `{"target":"first"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report engine.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, []string{"customers", "first"}, report.Order)
}

func TestRunPipeline_ErrorMapping(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/pipelines/broken/runs", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var report engine.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, engine.StatusFailed, report.Status)

	w, env = s.do(t, http.MethodPost, "/api/v1/pipelines/incomplete/runs", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "joined")

	w, _ = s.do(t, http.MethodPost, "/api/v1/pipelines/top/runs", `{"target":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/runs?status=unknown", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/pipelines/top/runs", "")

	w, _ := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lazyflow_pipeline_runs_total{pipeline="top",status="SUCCESS"} 1`)
}

func TestEventsWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events?types=run.finished"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	resp, err := http.Post(srv.URL+"/api/v1/pipelines/top/runs", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev events.Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, events.EventRunFinished, ev.Type)
	assert.Equal(t, "top", ev.Pipeline)
	require.NotNil(t, ev.Run)
	assert.Equal(t, engine.StatusSuccess, ev.Run.Status)
}

func TestEventsWebSocket_BadType(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/api/v1/events?types=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewAPIServer(Dependencies{}, DefaultServerConfig(), "test")
	assert.Equal(t, "0.0.0.0:8080", srv.Addr())
	assert.NoError(t, srv.Shutdown(context.Background()))
}
