// Package configstate owns the in-memory working configuration and mediates
// its transitions to and from the active configuration on disk.
package configstate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/pkg/types"
)

// LegacyInstanceID is the instance Apply restarts when Working is not bound
// to a preset.
const LegacyInstanceID = "default"

// ErrNoWorkingConfig is returned by ApplyWorking when nothing is loaded.
var ErrNoWorkingConfig = errors.New("no working configuration")

// ConfigStore persists the active configuration.
type ConfigStore interface {
	ReadActive() (acconfig.Config, error)
	WriteActive(cfg acconfig.Config) (acconfig.WriteReport, error)
	Default() (acconfig.Config, error)
}

// Runner is the slice of the orchestrator Apply needs for its restart cascade.
type Runner interface {
	IsLive(presetID string) bool
	Restart(ctx context.Context, presetID string, cfg acconfig.Config) (types.InstanceStatus, error)
}

type Options struct {
	Store ConfigStore
	// Runner is optional; without it Apply never restarts anything.
	Runner Runner
	Logger zerolog.Logger
}

// Manager holds the singleton working configuration.
type Manager struct {
	mu       sync.Mutex
	working  acconfig.Config
	presetID string

	// applyMu serialises Apply so the live check, the write and the restart
	// of one call never interleave with another's.
	applyMu sync.Mutex

	store  ConfigStore
	runner Runner
	log    zerolog.Logger
}

func New(opts Options) *Manager {
	return &Manager{
		store:  opts.Store,
		runner: opts.Runner,
		log:    opts.Logger.With().Str("component", "configstate").Logger(),
	}
}

// Snapshot is a preset's configuration handed to LoadPresetToWorking.
type Snapshot struct {
	ID     string
	Config acconfig.Config
}

// ApplyResult reports a committed Apply. The write itself succeeded; a failed
// restart or entry list propagation is attached here instead of failing the
// call.
type ApplyResult struct {
	Path            string
	PresetID        string
	ServerRestarted bool
	RestartErr      error
	EntryListErr    error
}

// GetWorking returns a copy of Working, creating it from Active on first use.
// When no active file exists yet the built-in default seeds it.
func (m *Manager) GetWorking() (acconfig.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLocked(); err != nil {
		return nil, err
	}
	return m.working.Clone(), nil
}

func (m *Manager) ensureLocked() error {
	if m.working != nil {
		return nil
	}
	cfg, err := m.store.ReadActive()
	if apperr.IsNotFound(err) {
		m.log.Info().Msg("no active config, seeding working from default")
		cfg, err = m.store.Default()
	}
	if err != nil {
		return err
	}
	m.working = cfg
	return nil
}

// UpdateWorking replaces Working wholesale. Nothing is written to disk.
func (m *Manager) UpdateWorking(cfg acconfig.Config) (types.UpdateResponse, error) {
	if cfg == nil {
		return types.UpdateResponse{}, apperr.Validation("update working", "configuration is empty")
	}
	m.mu.Lock()
	m.working = cfg.Clone()
	m.mu.Unlock()
	return types.UpdateResponse{Saved: false, Message: "working configuration updated; apply to save"}, nil
}

// SetWorkingValue assigns a single field of Working.
func (m *Manager) SetWorkingValue(section, key string, value any) error {
	if section == "" || key == "" {
		return apperr.Validation("set working value", "section and key are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLocked(); err != nil {
		return err
	}
	m.working.Set(section, key, value)
	return nil
}

// WorkingPreset returns the preset Working was loaded from ("" when unbound).
func (m *Manager) WorkingPreset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presetID
}

// LoadPresetToWorking replaces Working with the snapshot and binds it to the
// snapshot's preset. Active is left untouched.
func (m *Manager) LoadPresetToWorking(s Snapshot) error {
	if s.Config == nil {
		return apperr.Validation("load preset", "preset %q has no configuration", s.ID)
	}
	m.mu.Lock()
	m.working = s.Config.Clone()
	m.presetID = s.ID
	m.mu.Unlock()
	m.log.Info().Str("preset", s.ID).Msg("preset loaded into working")
	return nil
}

// LoadDefaultToWorking replaces Working with the default configuration.
func (m *Manager) LoadDefaultToWorking() error {
	cfg, err := m.store.Default()
	if err != nil {
		return err
	}
	m.replace(cfg)
	return nil
}

// LoadActiveToWorking replaces Working with what is on disk.
func (m *Manager) LoadActiveToWorking() error {
	cfg, err := m.store.ReadActive()
	if err != nil {
		return err
	}
	m.replace(cfg)
	return nil
}

// ResetWorking discards Working; the next read copies it from Active again.
func (m *Manager) ResetWorking() {
	m.replace(nil)
}

func (m *Manager) replace(cfg acconfig.Config) {
	m.mu.Lock()
	m.working = cfg
	m.presetID = ""
	m.mu.Unlock()
}

// ApplyWorking commits Working as the new Active configuration. If the bound
// instance was live before the write it is restarted against the written
// configuration. The live check, the write and the restart run in that order.
func (m *Manager) ApplyWorking(ctx context.Context) (ApplyResult, error) {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	m.mu.Lock()
	if m.working == nil {
		m.mu.Unlock()
		return ApplyResult{}, &apperr.Error{Kind: apperr.KindValidation, Op: "apply", Err: ErrNoWorkingConfig}
	}
	cfg := m.working.Clone()
	id := m.presetID
	m.mu.Unlock()
	if id == "" {
		id = LegacyInstanceID
	}

	wasLive := m.runner != nil && m.runner.IsLive(id)

	rep, err := m.store.WriteActive(cfg)
	if err != nil {
		m.log.Error().Err(err).Msg("apply failed")
		return ApplyResult{}, err
	}
	res := ApplyResult{Path: rep.Path, PresetID: id, EntryListErr: rep.EntryListErr}

	if wasLive {
		if _, err := m.runner.Restart(ctx, id, cfg); err != nil {
			m.log.Warn().Err(err).Str("preset", id).Msg("apply restart failed")
			res.RestartErr = err
		} else {
			res.ServerRestarted = true
		}
	}
	m.log.Info().Str("preset", id).Bool("restarted", res.ServerRestarted).Msg("working config applied")
	return res, nil
}
