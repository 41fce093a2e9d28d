// Package preset stores named configuration snapshots on disk: one index
// document with every preset's metadata and one configuration document per
// preset id.
//
// Index and blob writes are not transactional. A crash between the two can
// leave a blob without an index entry (ignored) or, on delete, an index entry
// removed with its blob still present.
package preset

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/internal/common/fsutil"
	"acmanager/internal/configstate"
)

const indexName = "index.json"

// Meta is the index entry of a preset.
type Meta struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ModifiedAt  time.Time        `json:"modified_at"`
	Summary     acconfig.Summary `json:"summary"`
}

// Preset is a preset with its full configuration.
type Preset struct {
	Meta
	Config acconfig.Config `json:"config"`
}

type indexDoc struct {
	Presets []Meta `json:"presets"`
}

// Working is the slice of the config state manager presets read from and
// load into.
type Working interface {
	GetWorking() (acconfig.Config, error)
	LoadPresetToWorking(configstate.Snapshot) error
}

// Store is safe for concurrent use within one process.
type Store struct {
	mu      sync.Mutex
	dir     string
	working Working
	log     zerolog.Logger
	now     func() time.Time
}

func NewStore(dir string, working Working, log zerolog.Logger) *Store {
	return &Store{
		dir:     dir,
		working: working,
		log:     log.With().Str("component", "preset").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns every preset's metadata in creation order.
func (s *Store) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Presets, nil
}

// Get returns a preset with its configuration.
func (s *Store) Get(id string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return Preset{}, err
	}
	i, err := find(idx, id)
	if err != nil {
		return Preset{}, err
	}
	cfg, err := s.readBlob(id)
	if err != nil {
		return Preset{}, err
	}
	return Preset{Meta: idx.Presets[i], Config: cfg}, nil
}

// Save snapshots the working configuration as a new preset. The blob's
// server name is set to name so the two agree from the start.
func (s *Store) Save(name, description string) (Meta, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Meta{}, apperr.Validation("save preset", "name is required")
	}
	cfg, err := s.working.GetWorking()
	if err != nil {
		return Meta{}, err
	}
	cfg.SetServerName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return Meta{}, err
	}
	now := s.now()
	m := Meta{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		ModifiedAt:  now,
		Summary:     acconfig.Summarize(cfg),
	}
	if err := s.writeBlob(m.ID, cfg); err != nil {
		return Meta{}, err
	}
	idx.Presets = append(idx.Presets, m)
	if err := s.writeIndex(idx); err != nil {
		return Meta{}, err
	}
	s.log.Info().Str("preset", m.ID).Str("name", name).Msg("preset saved")
	return m, nil
}

// Update overwrites the configuration of id with the working configuration,
// keeping the preset's name.
func (s *Store) Update(id string) (Meta, error) {
	cfg, err := s.working.GetWorking()
	if err != nil {
		return Meta{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return Meta{}, err
	}
	i, err := find(idx, id)
	if err != nil {
		return Meta{}, err
	}
	m := &idx.Presets[i]
	cfg.SetServerName(m.Name)
	m.Summary = acconfig.Summarize(cfg)
	m.ModifiedAt = s.now()
	if err := s.writeBlob(id, cfg); err != nil {
		return Meta{}, err
	}
	if err := s.writeIndex(idx); err != nil {
		return Meta{}, err
	}
	s.log.Info().Str("preset", id).Msg("preset updated")
	return *m, nil
}

// Load pushes the preset into the working configuration. The active
// configuration is not touched; applying is a separate step.
func (s *Store) Load(id string) (Meta, error) {
	p, err := s.Get(id)
	if err != nil {
		return Meta{}, err
	}
	if err := s.working.LoadPresetToWorking(configstate.Snapshot{ID: id, Config: p.Config}); err != nil {
		return Meta{}, err
	}
	return p.Meta, nil
}

// Duplicate copies id under a fresh id named newName.
func (s *Store) Duplicate(id, newName string) (Meta, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return Meta{}, apperr.Validation("duplicate preset", "name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return Meta{}, err
	}
	i, err := find(idx, id)
	if err != nil {
		return Meta{}, err
	}
	cfg, err := s.readBlob(id)
	if err != nil {
		return Meta{}, err
	}
	cfg.SetServerName(newName)
	now := s.now()
	m := Meta{
		ID:          uuid.NewString(),
		Name:        newName,
		Description: idx.Presets[i].Description,
		CreatedAt:   now,
		ModifiedAt:  now,
		Summary:     acconfig.Summarize(cfg),
	}
	if err := s.writeBlob(m.ID, cfg); err != nil {
		return Meta{}, err
	}
	idx.Presets = append(idx.Presets, m)
	if err := s.writeIndex(idx); err != nil {
		return Meta{}, err
	}
	s.log.Info().Str("preset", m.ID).Str("source", id).Msg("preset duplicated")
	return m, nil
}

// Rename changes the index name of id and the server name inside its blob to
// the same value.
func (s *Store) Rename(id, newName string) (Meta, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return Meta{}, apperr.Validation("rename preset", "name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return Meta{}, err
	}
	i, err := find(idx, id)
	if err != nil {
		return Meta{}, err
	}
	cfg, err := s.readBlob(id)
	if err != nil {
		return Meta{}, err
	}
	cfg.SetServerName(newName)
	if err := s.writeBlob(id, cfg); err != nil {
		return Meta{}, err
	}
	m := &idx.Presets[i]
	m.Name = newName
	m.ModifiedAt = s.now()
	if err := s.writeIndex(idx); err != nil {
		return Meta{}, err
	}
	s.log.Info().Str("preset", id).Str("name", newName).Msg("preset renamed")
	return *m, nil
}

// Delete removes the index entry and the blob of id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	i, err := find(idx, id)
	if err != nil {
		return err
	}
	idx.Presets = append(idx.Presets[:i], idx.Presets[i+1:]...)
	if err := s.writeIndex(idx); err != nil {
		return err
	}
	if err := os.Remove(s.blobPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.IO("delete preset", err, "%s", s.blobPath(id))
	}
	s.log.Info().Str("preset", id).Msg("preset deleted")
	return nil
}

func find(idx indexDoc, id string) (int, error) {
	for i, m := range idx.Presets {
		if m.ID == id {
			return i, nil
		}
	}
	return -1, apperr.NotFound("preset", "preset %q not found", id)
}

func (s *Store) indexPath() string { return filepath.Join(s.dir, indexName) }

func (s *Store) blobPath(id string) string { return filepath.Join(s.dir, id+".json") }

func (s *Store) readIndex() (indexDoc, error) {
	var idx indexDoc
	b, err := os.ReadFile(s.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return indexDoc{Presets: []Meta{}}, nil
		}
		return idx, apperr.IO("read preset index", err, "%s", s.indexPath())
	}
	if err := json.Unmarshal(b, &idx); err != nil {
		return idx, apperr.IO("read preset index", err, "%s is corrupt", s.indexPath())
	}
	if idx.Presets == nil {
		idx.Presets = []Meta{}
	}
	return idx, nil
}

func (s *Store) writeIndex(idx indexDoc) error {
	b, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return apperr.IO("write preset index", err, "encode")
	}
	if err := fsutil.WriteFileAtomic(s.indexPath(), b, 0o644); err != nil {
		return apperr.IO("write preset index", err, "%s", s.indexPath())
	}
	return nil
}

func (s *Store) readBlob(id string) (acconfig.Config, error) {
	b, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFound("preset", "configuration of preset %q is missing", id)
		}
		return nil, apperr.IO("read preset", err, "%s", s.blobPath(id))
	}
	var cfg acconfig.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, apperr.IO("read preset", err, "%s is corrupt", s.blobPath(id))
	}
	return cfg, nil
}

func (s *Store) writeBlob(id string, cfg acconfig.Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperr.IO("write preset", err, "encode")
	}
	if err := fsutil.WriteFileAtomic(s.blobPath(id), b, 0o644); err != nil {
		return apperr.IO("write preset", err, "%s", s.blobPath(id))
	}
	return nil
}
