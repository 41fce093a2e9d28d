package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acmanager/internal/acconfig"
	"acmanager/internal/configstate"
	"acmanager/internal/preset"
	"acmanager/pkg/types"
)

// ConfigService is the working/active configuration state machine.
type ConfigService interface {
	GetWorking() (acconfig.Config, error)
	UpdateWorking(cfg acconfig.Config) (types.UpdateResponse, error)
	SetWorkingValue(section, key string, value any) error
	WorkingPreset() string
	ApplyWorking(ctx context.Context) (configstate.ApplyResult, error)
	LoadDefaultToWorking() error
	LoadActiveToWorking() error
	ResetWorking()
}

// PresetService is the durable preset catalogue.
type PresetService interface {
	List() ([]preset.Meta, error)
	Get(id string) (preset.Preset, error)
	Save(name, description string) (preset.Meta, error)
	Update(id string) (preset.Meta, error)
	Load(id string) (preset.Meta, error)
	Duplicate(id, newName string) (preset.Meta, error)
	Rename(id, newName string) (preset.Meta, error)
	Delete(id string) error
}

// InstanceService runs server processes.
type InstanceService interface {
	Start(ctx context.Context, presetID string, cfg acconfig.Config) (types.InstanceStatus, error)
	Stop(ctx context.Context, presetID string) (types.InstanceStatus, error)
	Restart(ctx context.Context, presetID string, cfg acconfig.Config) (types.InstanceStatus, error)
	StopAll(ctx context.Context) []types.StopResult
	GetStatus(presetID string) (types.InstanceStatus, bool)
	GetAllStatuses() []types.InstanceStatus
	GetLogs(presetID string, n int) (types.LogsResponse, error)
}

// ActiveReader reads the active configuration; the legacy "default"
// instance is started from it.
type ActiveReader interface {
	ReadActive() (acconfig.Config, error)
}

// Services bundles the dependencies of the HTTP layer.
type Services struct {
	Config    ConfigService
	Presets   PresetService
	Instances InstanceService
	Active    ActiveReader
	// Ready reports whether the control plane can launch servers. Nil means
	// always ready.
	Ready func() bool
}

func NewMux(svc Services) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Accept", "Content-Type", "X-Request-Id", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Route("/api", func(r chi.Router) {
		r.Route("/config", func(r chi.Router) {
			r.Get("/working", h.getWorking)
			r.Put("/working", h.putWorking)
			r.Patch("/working/{section}/{key}", h.patchWorking)
			r.Post("/apply", h.apply)
			r.Post("/load-default", h.loadDefault)
			r.Post("/load-active", h.loadActive)
			r.Post("/reset", h.reset)
		})
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", h.listPresets)
			r.Post("/", h.savePreset)
			r.Get("/{id}", h.getPreset)
			r.Put("/{id}", h.updatePreset)
			r.Delete("/{id}", h.deletePreset)
			r.Post("/{id}/load", h.loadPreset)
			r.Post("/{id}/duplicate", h.duplicatePreset)
			r.Post("/{id}/rename", h.renamePreset)
		})
		r.Route("/instances", func(r chi.Router) {
			r.Get("/", h.listInstances)
			r.Post("/stop-all", h.stopAll)
			r.Get("/{id}", h.getInstance)
			r.Post("/{id}/start", h.startInstance)
			r.Post("/{id}/stop", h.stopInstance)
			r.Post("/{id}/restart", h.restartInstance)
			r.Get("/{id}/logs", h.instanceLogs)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready == nil || svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("server executable missing"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

type handlers struct {
	svc Services
}
