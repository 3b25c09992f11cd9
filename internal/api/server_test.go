package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"drone-spoof/internal/hub"
	"drone-spoof/internal/logstore"
	"drone-spoof/internal/metrics"
	"drone-spoof/internal/sim"
	"drone-spoof/internal/zone"
)

type fixture struct {
	handler http.Handler
	metrics *metrics.Metrics
	store   logstore.Store
}

func newFixture(t *testing.T, backend string) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	store, err := logstore.Open(backend, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	m := metrics.New()
	h := hub.New(sim.BuiltIn(), zone.DefaultConfig(), hub.Options{Logger: logger, Metrics: m})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
		store.Close()
	})
	return &fixture{
		handler: NewServer(store, h, m, logger, nil).Router(),
		metrics: m,
		store:   store,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestLogsEndpoints(t *testing.T) {
	for _, backend := range []string{logstore.BackendMemory, logstore.BackendSQLite} {
		for _, prefix := range []string{"", "/api"} {
			t.Run(backend+prefix, func(t *testing.T) {
				f := newFixture(t, backend)

				rec := f.do(t, http.MethodGet, prefix+"/logs", "")
				if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
					t.Fatalf("empty list: %d %q", rec.Code, rec.Body.String())
				}

				for i, msg := range []string{"first", "second"} {
					rec = f.do(t, http.MethodPost, prefix+"/logs", `{"message":"`+msg+`"}`)
					if rec.Code != http.StatusCreated {
						t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
					}
					got := decode[logstore.Record](t, rec)
					if got.ID != int64(i+1) || got.Message != msg {
						t.Fatalf("record = %+v", got)
					}
				}

				records := decode[[]logstore.Record](t, f.do(t, http.MethodGet, prefix+"/logs", ""))
				if len(records) != 2 || records[0].Message != "first" || records[1].ID != 2 {
					t.Fatalf("list = %+v", records)
				}
				if got := testutil.ToFloat64(f.metrics.LogRecords); got != 2 {
					t.Fatalf("log records metric = %f", got)
				}
			})
		}
	}
}

func TestCreateLogRejects(t *testing.T) {
	f := newFixture(t, logstore.BackendMemory)
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing message", `{}`, "Message required"},
		{"empty message", `{"message":""}`, "Message required"},
		{"malformed", `{"message":`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/logs", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decode[map[string]string](t, rec)
			if tc.want != "" && body["error"] != tc.want {
				t.Fatalf("error = %q", body["error"])
			}
		})
	}
	records, _ := f.store.List(context.Background())
	if len(records) != 0 {
		t.Fatalf("rejected requests must not store anything: %+v", records)
	}
}

func TestSimEndpoints(t *testing.T) {
	f := newFixture(t, logstore.BackendMemory)

	idle := decode[sim.View](t, f.do(t, http.MethodGet, "/api/sim/"+sim.ScenarioGNSS, ""))
	if idle.Phase != "INACTIVE" || idle.Scenario != sim.ScenarioGNSS {
		t.Fatalf("idle = %+v", idle)
	}

	rec := f.do(t, http.MethodPost, "/api/sim/"+sim.ScenarioGNSS+"/play", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("play: %d", rec.Code)
	}
	playing := decode[sim.View](t, rec)
	if !playing.Playing || playing.Phase == "INACTIVE" {
		t.Fatalf("play = %+v", playing)
	}

	paused := decode[sim.View](t, f.do(t, http.MethodPost, "/api/sim/"+sim.ScenarioGNSS+"/pause", ""))
	if paused.Playing {
		t.Fatalf("pause = %+v", paused)
	}

	reset := decode[sim.View](t, f.do(t, http.MethodPost, "/api/sim/"+sim.ScenarioGNSS+"/reset", ""))
	if reset.Phase != "INACTIVE" || len(reset.Footprints) != 0 {
		t.Fatalf("reset = %+v", reset)
	}

	scenarios := decode[[]sim.Scenario](t, f.do(t, http.MethodGet, "/api/scenarios", ""))
	if len(scenarios) != 2 || scenarios[0].Name != sim.ScenarioGNSS || scenarios[1].Name != sim.ScenarioInjection {
		t.Fatalf("scenarios = %+v", scenarios)
	}
}

func TestUnknownScenario(t *testing.T) {
	f := newFixture(t, logstore.BackendMemory)
	for _, path := range []string{"/api/sim/nope", "/api/sim/nope/play", "/ws/sim/nope"} {
		method := http.MethodPost
		if !strings.HasSuffix(path, "/play") {
			method = http.MethodGet
		}
		rec := f.do(t, method, path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		if body := decode[map[string]string](t, rec); body["error"] != "unknown scenario" {
			t.Fatalf("%s: body = %v", path, body)
		}
	}
}

func TestZoneEndpoints(t *testing.T) {
	f := newFixture(t, logstore.BackendMemory)
	cfg := zone.DefaultConfig()

	start := decode[zone.View](t, f.do(t, http.MethodGet, "/api/zone", ""))
	if start.Position != cfg.Start || start.Mode != "LIVE" {
		t.Fatalf("start = %+v", start)
	}

	moved := decode[zone.View](t, f.do(t, http.MethodPost, "/api/zone/move", `{"dx":1,"dy":1}`))
	if moved.Position.X != cfg.Start.X+cfg.MoveStep || moved.Position.Y != cfg.Start.Y+cfg.MoveStep {
		t.Fatalf("moved = %+v", moved.Position)
	}

	keyed := decode[zone.View](t, f.do(t, http.MethodPost, "/api/zone/move", `{"key":"ArrowLeft"}`))
	if keyed.Position.X != cfg.Start.X {
		t.Fatalf("key move = %+v", keyed.Position)
	}

	reset := decode[zone.View](t, f.do(t, http.MethodPost, "/api/zone/reset", ""))
	if reset.Position != cfg.Start {
		t.Fatalf("reset = %+v", reset.Position)
	}

	if rec := f.do(t, http.MethodPost, "/api/zone/move", `nope`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: %d", rec.Code)
	}
}

func TestHealthMetricsAndCORS(t *testing.T) {
	f := newFixture(t, logstore.BackendMemory)

	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || decode[map[string]any](t, rec)["status"] != "ok" {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "dronespoof_") {
		t.Fatalf("metrics: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodOptions, "/logs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("preflight not answered: %v", res.Header())
	}
}

func TestZoneWebsocket(t *testing.T) {
	f := newFixture(t, logstore.BackendMemory)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/zone", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var env struct {
		Type string    `json:"type"`
		Data zone.View `json:"data"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "zone" || env.Data.Mode != "LIVE" {
		t.Fatalf("first frame = %+v", env)
	}
}
