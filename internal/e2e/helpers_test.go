package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
	"acmanager/internal/configstate"
	"acmanager/internal/httpapi"
	"acmanager/internal/orchestrator"
	"acmanager/internal/preset"
	"acmanager/pkg/types"
)

// buildFakeServer compiles the fake dedicated server used by the orchestrator tests.
func buildFakeServer(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests rely on POSIX signals")
	}
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := filepath.Join(t.TempDir(), "acServer")
	cmd := exec.Command("go", "build", "-o", bin, "../orchestrator/testdata/fake_acserver.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	return bin
}

type env struct {
	srv    *httptest.Server
	orch   *orchestrator.Orchestrator
	active string
	dir    string
}

// newEnv wires the full stack the way the serve command does.
func newEnv(t *testing.T) *env {
	t.Helper()
	bin := buildFakeServer(t)
	dir := t.TempDir()
	active := filepath.Join(dir, "server", "cfg", acconfig.ServerCfgName)
	store := acconfig.NewStore(acconfig.StoreOptions{
		ActivePath:    active,
		EntryListPath: filepath.Join(dir, "server", "cfg", acconfig.EntryListName),
		InstancesDir:  filepath.Join(dir, "instances"),
	})
	orch := orchestrator.New(orchestrator.Config{
		ServerExe:     bin,
		StopTimeout:   2 * time.Second,
		RemovalGrace:  time.Minute,
		RestartSettle: 20 * time.Millisecond,
		Writer:        store,
	})
	cs := configstate.New(configstate.Options{Store: store, Runner: orch})
	ps := preset.NewStore(filepath.Join(dir, "presets"), cs, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(httpapi.Services{Config: cs, Presets: ps, Instances: orch, Active: store}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		orch.StopAll(ctx)
	})
	return &env{srv: srv, orch: orch, active: active, dir: dir}
}

func (e *env) call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

// savePreset stores a preset whose SERVER section binds the given ports.
func (e *env) savePreset(t *testing.T, name string, udp, tcp, httpPort int) preset.Meta {
	t.Helper()
	cfg := acconfig.DefaultConfig()
	cfg.Set(acconfig.SectionServer, acconfig.KeyUDPPort, udp)
	cfg.Set(acconfig.SectionServer, acconfig.KeyTCPPort, tcp)
	cfg.Set(acconfig.SectionServer, acconfig.KeyHTTPPort, httpPort)
	if code := e.call(t, http.MethodPut, "/api/config/working", cfg, nil); code != http.StatusOK {
		t.Fatalf("put working: %d", code)
	}
	var m preset.Meta
	if code := e.call(t, http.MethodPost, "/api/presets", types.SavePresetRequest{Name: name}, &m); code != http.StatusCreated {
		t.Fatalf("save preset: %d", code)
	}
	return m
}

func (e *env) waitState(t *testing.T, id, state string) types.InstanceStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var st types.InstanceStatus
	for time.Now().Before(deadline) {
		st = types.InstanceStatus{}
		if code := e.call(t, http.MethodGet, "/api/instances/"+id, nil, &st); code == http.StatusOK && st.State == state {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("instance %s never reached %s (last %+v)", id, state, st)
	return st
}
