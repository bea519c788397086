package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/dsl"
	"github.com/aretw0/rewind/pkg/observability"
	"github.com/aretw0/rewind/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	b := dsl.New()
	b.Add("idle").Initial().On("start", "running")
	b.Add("running").On("pause", "paused").On("stop", "idle")
	b.Add("paused").On("resume", "running")
	cfg, err := b.Build()
	require.NoError(t, err)

	return NewServer(session.NewManager(cfg, memory.NewStore()), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) session.View {
	t.Helper()
	var view session.View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	return view
}

func TestSession_Lifecycle(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, "POST", "/sessions/s1/trigger", `{"event":"start"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeView(t, w)
	assert.Equal(t, "running", view.State)
	assert.Equal(t, []string{"idle", "running"}, view.History)
	assert.Equal(t, []string{"pause", "stop"}, view.Events)
	assert.True(t, view.CanUndo)
	assert.False(t, view.CanRedo)

	w = do(t, h, "POST", "/sessions/s1/undo", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	require.NotNil(t, view.Moved)
	assert.True(t, *view.Moved)
	assert.Equal(t, "idle", view.State)
	assert.True(t, view.CanRedo)

	w = do(t, h, "POST", "/sessions/s1/undo", "")
	view = decodeView(t, w)
	assert.False(t, *view.Moved, "undo at the initial state does not move")

	w = do(t, h, "POST", "/sessions/s1/redo", "")
	view = decodeView(t, w)
	assert.True(t, *view.Moved)
	assert.Equal(t, "running", view.State)

	w = do(t, h, "POST", "/sessions/s1/goto", `{"state":"paused"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"idle", "running", "paused"}, decodeView(t, w).History)

	w = do(t, h, "GET", "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	assert.Equal(t, "paused", view.State)
	assert.Equal(t, 2, view.Position)
	assert.Nil(t, view.Moved)

	w = do(t, h, "POST", "/sessions/s1/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	assert.Equal(t, []string{"idle"}, view.History)

	w = do(t, h, "POST", "/sessions/s1/clear", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":["s1"]}`, w.Body.String())

	w = do(t, h, "DELETE", "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSession_Create(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, "POST", "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	view := decodeView(t, w)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "idle", view.State)

	w = do(t, h, "GET", "/sessions/"+view.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrors(t *testing.T) {
	h := newTestServer(t).Routes()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{
			name:   "Unknown Transition",
			path:   "/sessions/e/trigger",
			body:   `{"event":"explode"}`,
			status: http.StatusUnprocessableEntity,
			want:   `"kind":"unknown_transition","state":"idle","event":"explode"`,
		},
		{
			name:   "Unknown State",
			path:   "/sessions/e/goto",
			body:   `{"state":"nowhere"}`,
			status: http.StatusUnprocessableEntity,
			want:   `"kind":"unknown_state","state":"nowhere"`,
		},
		{
			name:   "Malformed Body",
			path:   "/sessions/e/trigger",
			body:   `{`,
			status: http.StatusBadRequest,
		},
		{
			name:   "Missing Event",
			path:   "/sessions/e/trigger",
			body:   `{}`,
			status: http.StatusBadRequest,
			want:   "event is required",
		},
		{
			name:   "Missing State",
			path:   "/sessions/e/goto",
			body:   `{"state":""}`,
			status: http.StatusBadRequest,
			want:   "state is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestTrigger_RejectedStillDiscardsRedo(t *testing.T) {
	h := newTestServer(t).Routes()

	do(t, h, "POST", "/sessions/r/trigger", `{"event":"start"}`)
	do(t, h, "POST", "/sessions/r/undo", "")

	w := do(t, h, "POST", "/sessions/r/trigger", `{"event":"bogus"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, "GET", "/sessions/r", "")
	view := decodeView(t, w)
	assert.Equal(t, "idle", view.State)
	assert.False(t, view.CanRedo)
	assert.Equal(t, []string{"idle"}, view.History)
}

type brokenStore struct {
	*memory.Store
}

func (brokenStore) Load(context.Context, string) (domain.Snapshot, error) {
	return domain.Snapshot{}, errors.New("connection refused")
}

func TestStoreFailure(t *testing.T) {
	b := dsl.New()
	b.Add("only").Initial()
	cfg, err := b.Build()
	require.NoError(t, err)

	h := NewHandler(session.NewManager(cfg, brokenStore{memory.NewStore()}))

	w := do(t, h, "POST", "/sessions/x/reset", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "session store unavailable")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGetStates(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, "GET", "/states", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"states":["idle","running","paused"]}`, w.Body.String())

	w = do(t, h, "GET", "/states?event=resume", "")
	assert.JSONEq(t, `{"states":["paused"]}`, w.Body.String())

	w = do(t, h, "GET", "/states?event=fly", "")
	assert.JSONEq(t, `{"states":[]}`, w.Body.String())
}

func TestGetGraph(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, "GET", "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
	assert.NotContains(t, w.Body.String(), "classDef")

	do(t, h, "POST", "/sessions/g/trigger", `{"event":"start"}`)
	w = do(t, h, "GET", "/graph?session=g", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class running current;")
	assert.Contains(t, w.Body.String(), "class idle visited;")

	w = do(t, h, "GET", "/graph?session=missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfoAndHealth(t *testing.T) {
	h := newTestServer(t).Routes()

	w := do(t, h, "GET", "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), strings.TrimSpace(rewind.Version))
	assert.Contains(t, w.Body.String(), `"initial":"idle"`)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	b := dsl.New()
	b.Add("idle").Initial().On("start", "running")
	b.Add("running")
	cfg, err := b.Build()
	require.NoError(t, err)

	mgr := session.NewManager(cfg, memory.NewStore(),
		session.WithMachineOptions(rewind.WithLifecycleHooks(metrics.Hooks())))
	h := NewHandler(mgr, WithMetrics(reg))

	do(t, h, "POST", "/sessions/m/trigger", `{"event":"start"}`)

	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `rewind_history_movements_total{type="state_change"} 1`)

	// Not mounted without a gatherer.
	w = do(t, newTestServer(t).Routes(), "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, WithRateLimit(2, time.Minute)).Routes()

	for i := 0; i < 2; i++ {
		w := do(t, h, "GET", "/states", "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := do(t, h, "GET", "/states", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	// Health checks are not limited.
	w = do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := newTestServer(t).Routes()
	w := do(t, h, "OPTIONS", "/sessions/x/trigger", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestSubscribeEvents_Session(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/sessions/live/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, reader))

	post, err := http.Post(ts.URL+"/sessions/live/trigger", "application/json", strings.NewReader(`{"event":"start"}`))
	require.NoError(t, err)
	post.Body.Close()

	var view session.View
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, reader)), &view))
	assert.Equal(t, "live", view.ID)
	assert.Equal(t, "running", view.State)
}

func TestSubscribeEvents_Reload(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, reader))

	b := dsl.New()
	b.Add("fresh").Initial()
	cfg, err := b.Build()
	require.NoError(t, err)

	srv.Reload(cfg)
	assert.Equal(t, "reload", readEvent(t, reader))
	assert.Same(t, cfg, srv.Sessions.Config())
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager()
	ch, unsubscribe := sm.Subscribe("s")

	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "msg")
	}
	assert.Len(t, ch, cap(ch))

	unsubscribe()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
	sm.Broadcast("s", "after") // No subscribers, no panic.
}
