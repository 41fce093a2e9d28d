package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"acmanager/pkg/types"
)

// listPresets godoc
// @Summary List presets
// @Tags presets
// @Produce json
// @Router /api/presets [get]
func (h *handlers) listPresets(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Presets.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": list})
}

// savePreset snapshots the working configuration as a new preset.
// @Summary Save working configuration as preset
// @Tags presets
// @Accept json
// @Produce json
// @Param body body types.SavePresetRequest true "preset"
// @Router /api/presets [post]
func (h *handlers) savePreset(w http.ResponseWriter, r *http.Request) {
	var req types.SavePresetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Presets.Save(req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) getPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Presets.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// updatePreset overwrites a preset with the working configuration.
func (h *handlers) updatePreset(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Presets.Update(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handlers) deletePreset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Presets.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadPreset pushes a preset into the working configuration. Active is not
// touched until /api/config/apply.
func (h *handlers) loadPreset(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Presets.Load(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handlers) duplicatePreset(w http.ResponseWriter, r *http.Request) {
	var req types.RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Presets.Duplicate(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) renamePreset(w http.ResponseWriter, r *http.Request) {
	var req types.RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Presets.Rename(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
