package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"acmanager/internal/acconfig"
	"acmanager/pkg/types"
)

type workingResponse struct {
	PresetID string          `json:"preset_id,omitempty"`
	Config   acconfig.Config `json:"config"`
}

// getWorking godoc
// @Summary Working configuration
// @Tags config
// @Produce json
// @Success 200 {object} workingResponse
// @Router /api/config/working [get]
func (h *handlers) getWorking(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Config.GetWorking()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workingResponse{PresetID: h.svc.Config.WorkingPreset(), Config: cfg})
}

// putWorking replaces the working configuration; nothing is written to disk.
// @Summary Replace working configuration
// @Tags config
// @Accept json
// @Produce json
// @Success 200 {object} types.UpdateResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /api/config/working [put]
func (h *handlers) putWorking(w http.ResponseWriter, r *http.Request) {
	var cfg acconfig.Config
	if !decodeJSON(w, r, &cfg) {
		return
	}
	resp, err := h.svc.Config.UpdateWorking(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// patchWorking sets a single field of the working configuration.
// @Summary Set one working field
// @Tags config
// @Accept json
// @Produce json
// @Param section path string true "INI section" example(SERVER)
// @Param key path string true "INI key" example(MAX_CLIENTS)
// @Param body body types.SetValueRequest true "value"
// @Success 200 {object} types.UpdateResponse
// @Router /api/config/working/{section}/{key} [patch]
func (h *handlers) patchWorking(w http.ResponseWriter, r *http.Request) {
	var req types.SetValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	section := strings.ToUpper(chi.URLParam(r, "section"))
	key := strings.ToUpper(chi.URLParam(r, "key"))
	if err := h.svc.Config.SetWorkingValue(section, key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UpdateResponse{Saved: false, Message: section + "." + key + " updated; apply to save"})
}

// apply commits the working configuration and restarts its live instance.
// @Summary Apply working configuration
// @Tags config
// @Produce json
// @Success 200 {object} types.ApplyResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 500 {object} types.ErrorResponse
// @Router /api/config/apply [post]
func (h *handlers) apply(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Config.ApplyWorking(serverBaseCtx)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := types.ApplyResponse{
		Success:         true,
		PresetID:        res.PresetID,
		ServerRestarted: res.ServerRestarted,
	}
	if res.RestartErr != nil {
		resp.RestartError = res.RestartErr.Error()
	}
	if res.EntryListErr != nil {
		resp.EntryListError = res.EntryListErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) loadDefault(w http.ResponseWriter, r *http.Request) {
	h.replaced(w, h.svc.Config.LoadDefaultToWorking(), "default configuration loaded")
}

func (h *handlers) loadActive(w http.ResponseWriter, r *http.Request) {
	h.replaced(w, h.svc.Config.LoadActiveToWorking(), "active configuration loaded")
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.svc.Config.ResetWorking()
	h.replaced(w, nil, "working configuration discarded")
}

func (h *handlers) replaced(w http.ResponseWriter, err error, msg string) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UpdateResponse{Saved: false, Message: msg})
}
