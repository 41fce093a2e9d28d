package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/internal/configstate"
	"acmanager/pkg/types"
)

// listInstances godoc
// @Summary Registered server instances
// @Tags instances
// @Produce json
// @Success 200 {array} types.InstanceStatus
// @Router /api/instances [get]
func (h *handlers) listInstances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"instances": h.svc.Instances.GetAllStatuses()})
}

func (h *handlers) getInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok := h.svc.Instances.GetStatus(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, apperr.KindNotFound, "instance \""+id+"\" not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// startInstance launches the server for a preset using the preset's stored
// configuration.
// @Summary Start a server for a preset
// @Tags instances
// @Produce json
// @Param id path string true "preset id"
// @Success 202 {object} types.InstanceStatus
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Router /api/instances/{id}/start [post]
func (h *handlers) startInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, err := h.instanceConfig(id)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	st, err := h.svc.Instances.Start(ctx, id, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// stopInstance returns once the process exit has been observed.
// @Summary Stop a server
// @Tags instances
// @Produce json
// @Param id path string true "preset id"
// @Success 200 {object} types.InstanceStatus
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Router /api/instances/{id}/stop [post]
func (h *handlers) stopInstance(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Instances.Stop(serverBaseCtx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) restartInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, err := h.instanceConfig(id)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.svc.Instances.Restart(serverBaseCtx, id, cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// instanceLogs returns the tail of both output streams.
// @Summary Instance output
// @Tags instances
// @Produce json
// @Param id path string true "preset id"
// @Param n query int false "lines per stream"
// @Success 200 {object} types.LogsResponse
// @Router /api/instances/{id}/logs [get]
func (h *handlers) instanceLogs(w http.ResponseWriter, r *http.Request) {
	n := defaultLogLines
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, apperr.KindValidation, "n must be a non-negative integer")
			return
		}
		n = parsed
	}
	logs, err := h.svc.Instances.GetLogs(chi.URLParam(r, "id"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *handlers) stopAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.StopAllResponse{Results: h.svc.Instances.StopAll(serverBaseCtx)})
}

// instanceConfig resolves the configuration an instance is launched with:
// the preset's blob, or the active configuration for the legacy instance.
func (h *handlers) instanceConfig(id string) (acconfig.Config, error) {
	p, err := h.svc.Presets.Get(id)
	if err == nil {
		return p.Config, nil
	}
	if apperr.IsNotFound(err) && id == configstate.LegacyInstanceID && h.svc.Active != nil {
		return h.svc.Active.ReadActive()
	}
	return nil, err
}
