package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: instance "a" is already registered
	Error string `json:"error" example:"invalid JSON body"`
	// Error kind: not_found, conflict, validation, io_failure, process_failure.
	Kind string `json:"kind,omitempty" example:"conflict"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// UpdateResponse acknowledges an in-memory edit of the working config.
type UpdateResponse struct {
	// Always false: the edit lives only in memory until applied.
	Saved   bool   `json:"saved"`
	Message string `json:"message"`
}

// ApplyResponse reports the outcome of committing the working config.
type ApplyResponse struct {
	Success bool `json:"success"`
	// Preset whose instance the apply targets.
	PresetID string `json:"preset_id,omitempty"`
	// True when a live instance was restarted with the new config.
	ServerRestarted bool `json:"serverRestarted"`
	// Restart failure, if the cascade failed. The disk write still stands.
	RestartError string `json:"restart_error,omitempty"`
	// Entry list propagation failure, if any.
	EntryListError string `json:"entry_list_error,omitempty"`
}

// RenameRequest is the body of POST /api/presets/{id}/rename and /duplicate.
type RenameRequest struct {
	Name string `json:"name" example:"Sunday Cup"`
}

// SavePresetRequest is the body of POST /api/presets.
type SavePresetRequest struct {
	Name        string `json:"name" example:"Sunday Cup"`
	Description string `json:"description,omitempty" example:"Mazda MX-5 at Monza"`
}

// SetValueRequest is the body of PATCH /api/config/working/{section}/{key}.
type SetValueRequest struct {
	// New value; numbers stay numeric, CARS accepts a list or a ;-joined string.
	Value any `json:"value" swaggertype:"string" example:"24"`
}
