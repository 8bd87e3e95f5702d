package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantfleet/quantfleet-go/internal/config"
	"github.com/quantfleet/quantfleet-go/internal/observer"
)

type stubSupervisor struct {
	status map[string]bool
}

func (s *stubSupervisor) Status() map[string]bool { return s.status }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	if err := config.Load(); err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	supervisor := &stubSupervisor{status: map[string]bool{
		"alpha:BTCUSDT": true,
		"beta:ETHUSDT":  false,
	}}
	return NewServer(config.Get(), observer.GetSink(), supervisor, nil)
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("healthz应返回200: got %d", w.Code)
	}
}

func TestReadyzWithoutRedis(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/readyz")
	if w.Code != http.StatusOK {
		t.Errorf("无Redis部署readyz应返回200: got %d", w.Code)
	}
}

func TestStatusReportsRunners(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status应返回200: got %d", w.Code)
	}

	var payload struct {
		Runners      map[string]bool `json:"runners"`
		RunnersAlive int             `json:"runners_alive"`
		DryRun       bool            `json:"dry_run"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(payload.Runners) != 2 {
		t.Errorf("应报告2个交易循环: %v", payload.Runners)
	}
	if payload.RunnersAlive != 1 {
		t.Errorf("存活数不符: got %d, want 1", payload.RunnersAlive)
	}
}

func TestStatusUsesCache(t *testing.T) {
	s := newTestServer(t)

	first := doRequest(s, http.MethodGet, "/api/status")
	// 修改底层状态，缓存窗口内响应不变
	s.supervisor.(*stubSupervisor).status["gamma:SOLUSDT"] = true
	second := doRequest(s, http.MethodGet, "/api/status")

	var a, b struct {
		Runners map[string]bool `json:"runners"`
	}
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if len(a.Runners) != len(b.Runners) {
		t.Errorf("缓存窗口内状态不应变化: %d vs %d", len(a.Runners), len(b.Runners))
	}
}

func TestTicksWithoutRedis(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/ticks?limit=10")
	if w.Code != http.StatusOK {
		t.Errorf("无Redis时ticks应降级为空列表: got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics应返回200: got %d", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("解析指标失败: %v", err)
	}
	if _, ok := payload["GoroutineCount"]; !ok {
		t.Errorf("指标缺少系统字段: %v", payload)
	}
}
