package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/internal/configstate"
	"acmanager/internal/orchestrator"
	"acmanager/internal/preset"
	"acmanager/pkg/types"
)

type testEnv struct {
	handler http.Handler
	active  string
	cs      *configstate.Manager
	presets *preset.Store
}

func newTestEnv(t *testing.T, inst InstanceService) *testEnv {
	t.Helper()
	dir := t.TempDir()
	active := filepath.Join(dir, "cfg", acconfig.ServerCfgName)
	store := acconfig.NewStore(acconfig.StoreOptions{
		ActivePath:   active,
		InstancesDir: filepath.Join(dir, "instances"),
	})
	if inst == nil {
		inst = orchestrator.New(orchestrator.Config{ServerExe: filepath.Join(dir, "missing", "acServer"), Writer: store})
	}
	cs := configstate.New(configstate.Options{Store: store})
	ps := preset.NewStore(filepath.Join(dir, "presets"), cs, zerolog.Nop())
	h := NewMux(Services{Config: cs, Presets: ps, Instances: inst, Active: store})
	return &testEnv{handler: h, active: active, cs: cs, presets: ps}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz=%d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/readyz", nil); w.Code != http.StatusOK {
		t.Fatalf("readyz=%d", w.Code)
	}
	h := NewMux(Services{Ready: func() bool { return false }})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", w.Code)
	}
}

func TestWorkingConfigRoundTrip(t *testing.T) {
	e := newTestEnv(t, nil)
	w := e.do(t, http.MethodGet, "/api/config/working", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get=%d", w.Code)
	}

	body := `{"SERVER":{"NAME":"Edited","CARS":["a","b"],"MAX_CLIENTS":12}}`
	w = e.do(t, http.MethodPut, "/api/config/working", body)
	if w.Code != http.StatusOK {
		t.Fatalf("put=%d %s", w.Code, w.Body.String())
	}
	if resp := decode[types.UpdateResponse](t, w); resp.Saved {
		t.Fatalf("put must not report saved")
	}

	w = e.do(t, http.MethodPatch, "/api/config/working/server/max_clients", map[string]any{"value": 18})
	if w.Code != http.StatusOK {
		t.Fatalf("patch=%d %s", w.Code, w.Body.String())
	}
	cfg, _ := e.cs.GetWorking()
	if cfg.Int(acconfig.SectionServer, acconfig.KeyMaxClients, 0) != 18 || cfg.ServerName() != "Edited" {
		t.Fatalf("unexpected working: %+v", cfg)
	}
	if cars := cfg.Cars(); len(cars) != 2 {
		t.Fatalf("cars lost: %v", cars)
	}
}

func TestApplyWritesActive(t *testing.T) {
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodPost, "/api/config/load-default", nil); w.Code != http.StatusOK {
		t.Fatalf("load-default=%d", w.Code)
	}
	w := e.do(t, http.MethodPost, "/api/config/apply", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("apply=%d %s", w.Code, w.Body.String())
	}
	resp := decode[types.ApplyResponse](t, w)
	if !resp.Success || resp.ServerRestarted {
		t.Fatalf("unexpected apply response: %+v", resp)
	}
	if _, err := acconfig.ReadFile(e.active); err != nil {
		t.Fatalf("active not written: %v", err)
	}
}

func TestApplyAfterResetIsValidation(t *testing.T) {
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodPost, "/api/config/reset", nil); w.Code != http.StatusOK {
		t.Fatalf("reset=%d", w.Code)
	}
	w := e.do(t, http.MethodPost, "/api/config/apply", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
	if er := decode[types.ErrorResponse](t, w); er.Kind != string(apperr.KindValidation) {
		t.Fatalf("unexpected error: %+v", er)
	}
}

func TestLoadActiveMissingIs404(t *testing.T) {
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodPost, "/api/config/load-active", nil); w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestPresetLifecycle(t *testing.T) {
	e := newTestEnv(t, nil)
	w := e.do(t, http.MethodPost, "/api/presets", types.SavePresetRequest{Name: "Cup"})
	if w.Code != http.StatusCreated {
		t.Fatalf("save=%d %s", w.Code, w.Body.String())
	}
	m := decode[preset.Meta](t, w)

	w = e.do(t, http.MethodPost, "/api/presets/"+m.ID+"/rename", types.RenameRequest{Name: "Cup II"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename=%d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/presets/"+m.ID, nil)
	p := decode[preset.Preset](t, w)
	if p.Name != "Cup II" || p.Config.ServerName() != "Cup II" {
		t.Fatalf("rename not reflected: %q / %q", p.Name, p.Config.ServerName())
	}

	w = e.do(t, http.MethodPost, "/api/presets/"+m.ID+"/duplicate", types.RenameRequest{Name: "Copy"})
	if w.Code != http.StatusCreated {
		t.Fatalf("duplicate=%d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/presets", nil)
	list := decode[map[string][]preset.Meta](t, w)
	if len(list["presets"]) != 2 {
		t.Fatalf("want 2 presets, got %d", len(list["presets"]))
	}

	if w = e.do(t, http.MethodPost, "/api/presets/"+m.ID+"/load", nil); w.Code != http.StatusOK {
		t.Fatalf("load=%d", w.Code)
	}
	if e.cs.WorkingPreset() != m.ID {
		t.Fatalf("working not bound after load")
	}
	if w = e.do(t, http.MethodPut, "/api/presets/"+m.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("update=%d", w.Code)
	}
	if w = e.do(t, http.MethodDelete, "/api/presets/"+m.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete=%d", w.Code)
	}
	if w = e.do(t, http.MethodGet, "/api/presets/"+m.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted=%d", w.Code)
	}
}

func TestInvalidJSONIs400(t *testing.T) {
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodPost, "/api/presets", "{broken"); w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestInstanceReadsOnUnknownID(t *testing.T) {
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodGet, "/api/instances/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/instances/nope/logs", nil); w.Code != http.StatusNotFound {
		t.Fatalf("logs=%d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/instances/nope/logs?n=x", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad n=%d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/instances/nope/stop", nil); w.Code != http.StatusNotFound {
		t.Fatalf("stop=%d", w.Code)
	}
	w := e.do(t, http.MethodGet, "/api/instances", nil)
	if list := decode[map[string][]types.InstanceStatus](t, w); len(list["instances"]) != 0 {
		t.Fatalf("want empty list, got %+v", list)
	}
	w = e.do(t, http.MethodPost, "/api/instances/stop-all", nil)
	if resp := decode[types.StopAllResponse](t, w); resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("want empty results, got %+v", resp)
	}
}

func TestStartWithMissingExecutableIs404(t *testing.T) {
	e := newTestEnv(t, nil)
	m, err := e.presets.Save("Cup", "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	w := e.do(t, http.MethodPost, "/api/instances/"+m.ID+"/start", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
	if er := decode[types.ErrorResponse](t, w); er.Kind != string(apperr.KindNotFound) {
		t.Fatalf("unexpected kind: %+v", er)
	}
	if w := e.do(t, http.MethodPost, "/api/instances/unknown-preset/start", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown preset: want 404, got %d", w.Code)
	}
}

type stubInstances struct {
	startErr error
	started  string
	cfg      acconfig.Config
}

func (s *stubInstances) Start(_ context.Context, id string, cfg acconfig.Config) (types.InstanceStatus, error) {
	s.started, s.cfg = id, cfg
	if s.startErr != nil {
		return types.InstanceStatus{}, s.startErr
	}
	return types.InstanceStatus{PresetID: id, State: "starting"}, nil
}
func (s *stubInstances) Stop(context.Context, string) (types.InstanceStatus, error) {
	return types.InstanceStatus{}, nil
}
func (s *stubInstances) Restart(ctx context.Context, id string, cfg acconfig.Config) (types.InstanceStatus, error) {
	return s.Start(ctx, id, cfg)
}
func (s *stubInstances) StopAll(context.Context) []types.StopResult { return []types.StopResult{} }
func (s *stubInstances) GetStatus(string) (types.InstanceStatus, bool) {
	return types.InstanceStatus{}, false
}
func (s *stubInstances) GetAllStatuses() []types.InstanceStatus { return []types.InstanceStatus{} }
func (s *stubInstances) GetLogs(id string, _ int) (types.LogsResponse, error) {
	return types.LogsResponse{PresetID: id, Stdout: []types.LogLine{}, Stderr: []types.LogLine{}}, nil
}

func TestStartErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		kind apperr.Kind
	}{
		{"port", &apperr.PortConflict{PortKind: "udp", Port: 9600, Holder: "a"}, http.StatusConflict, apperr.KindConflict},
		{"process", apperr.Process("start", context.DeadlineExceeded, "spawn"), http.StatusBadGateway, apperr.KindProcess},
		{"io", apperr.IO("write config", context.Canceled, "disk"), http.StatusInternalServerError, apperr.KindIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, &stubInstances{startErr: tc.err})
			m, err := e.presets.Save("Cup", "")
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			w := e.do(t, http.MethodPost, "/api/instances/"+m.ID+"/start", nil)
			if w.Code != tc.code {
				t.Fatalf("want %d, got %d", tc.code, w.Code)
			}
			if er := decode[types.ErrorResponse](t, w); er.Kind != string(tc.kind) || er.Code != tc.code {
				t.Fatalf("unexpected error body: %+v", er)
			}
		})
	}
}

func TestStartLegacyInstanceUsesActive(t *testing.T) {
	stub := &stubInstances{}
	e := newTestEnv(t, stub)
	if err := e.cs.LoadDefaultToWorking(); err != nil {
		t.Fatalf("load default: %v", err)
	}
	if _, err := e.cs.ApplyWorking(context.Background()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	w := e.do(t, http.MethodPost, "/api/instances/"+configstate.LegacyInstanceID+"/start", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d %s", w.Code, w.Body.String())
	}
	if stub.started != configstate.LegacyInstanceID || stub.cfg.ServerName() == "" {
		t.Fatalf("legacy start did not use active config: %+v", stub)
	}
}

func TestCORSPreflight(t *testing.T) {
	SetCORSOptions(true, []string{"http://ui.local"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	h := NewMux(Services{})
	req := httptest.NewRequest(http.MethodOptions, "/api/instances", nil)
	req.Header.Set("Origin", "http://ui.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestSetMaxBodyBytes(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	e := newTestEnv(t, nil)
	if w := e.do(t, http.MethodPost, "/api/presets", types.SavePresetRequest{Name: "a very long preset name indeed"}); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: want 400, got %d", w.Code)
	}
}
