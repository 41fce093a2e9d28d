package acconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"acmanager/internal/apperr"
	"acmanager/internal/common/fsutil"
)

const (
	ServerCfgName = "server_cfg.ini"
	EntryListName = "entry_list.ini"
)

// StoreOptions configures a Store.
type StoreOptions struct {
	// ActivePath is the server_cfg.ini the server reads at launch.
	ActivePath string
	// EntryListPath is the entry_list.ini next to the active config.
	EntryListPath string
	// DefaultPath is an optional template; DefaultConfig is used when empty.
	DefaultPath string
	// InstancesDir holds one cfg/ directory per running preset.
	InstancesDir string
	Logger       zerolog.Logger
}

// Store reads and writes configuration files on disk.
type Store struct {
	activePath    string
	entryListPath string
	defaultPath   string
	instancesDir  string
	log           zerolog.Logger
}

// WriteReport describes a successful primary write. EntryListErr is set when
// the best-effort entry list propagation failed; the primary write still
// stands.
type WriteReport struct {
	Path          string `json:"path"`
	EntryListPath string `json:"entry_list_path,omitempty"`
	EntryListErr  error  `json:"-"`
}

// InstancePaths locates the files an instance is launched against.
type InstancePaths struct {
	Dir       string
	ServerCfg string
	EntryList string
}

func NewStore(opts StoreOptions) *Store {
	return &Store{
		activePath:    opts.ActivePath,
		entryListPath: opts.EntryListPath,
		defaultPath:   opts.DefaultPath,
		instancesDir:  opts.InstancesDir,
		log:           opts.Logger.With().Str("component", "acconfig").Logger(),
	}
}

// ActivePath returns the path of the active config.
func (s *Store) ActivePath() string { return s.activePath }

// ReadActive loads the active config from disk.
func (s *Store) ReadActive() (Config, error) {
	return ReadFile(s.activePath)
}

// ReadFile loads and parses a config file.
func ReadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFound("read config", "%s does not exist", path)
		}
		return nil, apperr.IO("read config", err, "%s", path)
	}
	return Parse(b)
}

// Default returns the default config template.
func (s *Store) Default() (Config, error) {
	if s.defaultPath == "" {
		return DefaultConfig(), nil
	}
	return ReadFile(s.defaultPath)
}

// WriteActive durably writes cfg as the active config, then propagates the
// car selection into the entry list. Only the first step can fail the call.
func (s *Store) WriteActive(cfg Config) (WriteReport, error) {
	if err := writeConfig(s.activePath, cfg); err != nil {
		return WriteReport{}, err
	}
	rep := WriteReport{Path: s.activePath, EntryListPath: s.entryListPath}
	if s.entryListPath != "" {
		if err := PropagateCars(s.entryListPath, cfg.Cars()); err != nil {
			s.log.Warn().Err(err).Str("path", s.entryListPath).Msg("entry list propagation failed")
			rep.EntryListErr = err
		}
	}
	s.log.Info().Str("path", s.activePath).Msg("active config written")
	return rep, nil
}

// WriteInstance writes cfg into the instance directory of presetID, seeding
// its entry list from the active one (or generating one) and propagating the
// car selection into it.
func (s *Store) WriteInstance(presetID string, cfg Config) (InstancePaths, error) {
	if err := validateInstanceID(presetID); err != nil {
		return InstancePaths{}, err
	}
	dir := filepath.Join(s.instancesDir, presetID, "cfg")
	paths := InstancePaths{
		Dir:       dir,
		ServerCfg: filepath.Join(dir, ServerCfgName),
		EntryList: filepath.Join(dir, EntryListName),
	}
	if err := writeConfig(paths.ServerCfg, cfg); err != nil {
		return InstancePaths{}, err
	}
	if err := s.seedEntryList(paths.EntryList, cfg); err != nil {
		return InstancePaths{}, err
	}
	if err := PropagateCars(paths.EntryList, cfg.Cars()); err != nil {
		s.log.Warn().Err(err).Str("preset", presetID).Msg("entry list propagation failed")
	}
	return paths, nil
}

func (s *Store) seedEntryList(dst string, cfg Config) error {
	var data []byte
	if s.entryListPath != "" {
		b, err := os.ReadFile(s.entryListPath)
		if err == nil {
			data = b
		} else if !errors.Is(err, os.ErrNotExist) {
			return apperr.IO("seed entry list", err, "%s", s.entryListPath)
		}
	}
	if data == nil {
		slots := cfg.Int(SectionServer, KeyMaxClients, len(cfg.Cars()))
		b, err := NewEntryList(slots, cfg.Cars())
		if err != nil {
			return apperr.Validation("seed entry list", "%v", err)
		}
		data = b
	}
	if err := fsutil.WriteFileAtomic(dst, data, 0o644); err != nil {
		return apperr.IO("seed entry list", err, "%s", dst)
	}
	return nil
}

func writeConfig(path string, cfg Config) error {
	if path == "" {
		return apperr.Validation("write config", "no config path configured")
	}
	b, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return apperr.IO("write config", err, "%s", path)
	}
	return nil
}

func validateInstanceID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		return apperr.Validation("instance dir", "invalid instance id %q", id)
	}
	return nil
}
