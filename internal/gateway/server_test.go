package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/fakegpt/internal/app"
	"github.com/dohr-michael/fakegpt/internal/config"
	"github.com/dohr-michael/fakegpt/internal/demo"
	"github.com/dohr-michael/fakegpt/internal/events"
)

// fixedRand rolls n for the demo failure budget.
type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

// noRand never rolls slow or failing ambient requests.
type noRand struct{}

func (noRand) Float64() float64   { return 0.99 }
func (noRand) Int64N(int64) int64 { return 0 }

// waitForEvents polls the bus history until at least n events are present.
func waitForEvents(bus *events.Bus, n int) {
	for i := 0; i < 200; i++ {
		if len(bus.History(100)) >= n {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Conversation.GreetingDelay = 0
	cfg.Conversation.ResponseDelay = 0
	cfg.Streaming.Slow, cfg.Streaming.Normal, cfg.Streaming.Fast, cfg.Streaming.Jitter = 0, 0, 0, 0
	cfg.Network.BaseDelay = 0
	cfg.Network.RetryBaseDelay = 0
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	a, err := app.New(cfg, app.WithRand(fixedRand(0), noRand{}))
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(a, "localhost", 0)
	t.Cleanup(func() {
		srv.hub.Close()
		a.Close()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := do(t, srv, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["status"] != "ok" {
		t.Fatalf("expected status %q, got %q", "ok", body["status"])
	}
}

func TestHandleEvents_LimitParam(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for i := 0; i < 10; i++ {
		srv.app.Bus.Publish(events.NewEvent(events.EventNetworkRequest, events.SourceBot, map[string]any{"attempt": i}))
	}
	waitForEvents(srv.app.Bus, 10)

	w := do(t, srv, http.MethodGet, "/api/events?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := decode[[]map[string]any](t, w)
	if len(body) != 5 {
		t.Fatalf("expected 5 events with limit=5, got %d", len(body))
	}
	ts, _ := body[0]["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Errorf("timestamp %q: %v", ts, err)
	}

	if w := do(t, srv, http.MethodGet, "/api/events?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", w.Code)
	}
}

func TestHandleTopics(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := do(t, srv, http.MethodGet, "/api/topics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body)
	}
	body := decode[struct {
		Data   []struct{ ID string } `json:"data"`
		Cached bool                  `json:"cached"`
	}](t, w)
	if len(body.Data) != 5 || body.Data[0].ID != "architecture" || body.Cached {
		t.Errorf("body = %+v", body)
	}

	w = do(t, srv, http.MethodGet, "/api/topics", "")
	if !decode[struct {
		Cached bool `json:"cached"`
	}](t, w).Cached {
		t.Error("second fetch should be cached")
	}

	if w := do(t, srv, http.MethodDelete, "/api/cache", ""); w.Code != http.StatusNoContent {
		t.Fatalf("clear cache: %d", w.Code)
	}
	w = do(t, srv, http.MethodGet, "/api/topics", "")
	if decode[struct {
		Cached bool `json:"cached"`
	}](t, w).Cached {
		t.Error("fetch after clear should not be cached")
	}
}

func TestHandleTopicResponse(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := do(t, srv, http.MethodGet, "/api/topics/streaming/response", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/api/topics/unknown/response", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown topic status %d", w.Code)
	}
	body := decode[struct {
		Data  string `json:"data"`
		Found bool   `json:"found"`
	}](t, w)
	if body.Found || body.Data != "Sorry, I don't have information about that topic." {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleTopicResponse_SimulatedFailure(t *testing.T) {
	srv := newTestServer(t, testConfig())
	if err := srv.app.Demo.Enable(demo.ScenarioFail); err != nil {
		t.Fatal(err)
	}

	// fixedRand(0) arms a budget of one failure.
	if w := do(t, srv, http.MethodGet, "/api/topics/architecture/response", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("first request status %d, want 503", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/topics/architecture/response", ""); w.Code != http.StatusOK {
		t.Fatalf("second request status %d, want recovery", w.Code)
	}
}

func TestHandleTopics_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Network.RateLimit.Requests = 1
	srv := newTestServer(t, cfg)

	if w := do(t, srv, http.MethodGet, "/api/topics/architecture/response", ""); w.Code != http.StatusOK {
		t.Fatalf("first: %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/topics/streaming/response", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d, want 429", w.Code)
	}
}

func TestHandleDemo(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := do(t, srv, http.MethodPut, "/api/demo", `{"scenario":"slow"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put: %d %s", w.Code, w.Body)
	}
	st := decode[demo.State](t, w)
	if !st.Active || st.Scenario != demo.ScenarioSlow {
		t.Errorf("after put: %+v", st)
	}

	w = do(t, srv, http.MethodGet, "/api/demo", "")
	if st := decode[demo.State](t, w); st.Scenario != demo.ScenarioSlow {
		t.Errorf("get: %+v", st)
	}

	w = do(t, srv, http.MethodPut, "/api/demo", `{"scenario":"slow","toggle":true}`)
	if st := decode[demo.State](t, w); st.Active {
		t.Errorf("toggle should disable: %+v", st)
	}

	if w := do(t, srv, http.MethodPut, "/api/demo", `{"scenario":"chaos"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown scenario: %d", w.Code)
	}
	if w := do(t, srv, http.MethodPut, "/api/demo", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: %d", w.Code)
	}

	do(t, srv, http.MethodPut, "/api/demo", `{"scenario":"fail"}`)
	w = do(t, srv, http.MethodDelete, "/api/demo", "")
	if st := decode[demo.State](t, w); st.Active {
		t.Errorf("delete: %+v", st)
	}
}

func TestHandleConversation(t *testing.T) {
	srv := newTestServer(t, testConfig())
	srv.app.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		w := do(t, srv, http.MethodGet, "/api/conversation", "")
		body := decode[struct {
			Messages []struct {
				Role      string `json:"role"`
				Streaming bool   `json:"streaming"`
			} `json:"messages"`
		}](t, w)
		if len(body.Messages) == 1 && !body.Messages[0].Streaming {
			if body.Messages[0].Role != "bot" {
				t.Errorf("greeting role = %q", body.Messages[0].Role)
			}
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("no greeting: %+v", body)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
