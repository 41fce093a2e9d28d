package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"acmanager/internal/common/fsutil"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "ACMANAGER_CONFIG"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	ServerDir   string `json:"server_dir" yaml:"server_dir" toml:"server_dir"`
	ServerExe   string `json:"server_exe" yaml:"server_exe" toml:"server_exe"`
	ServerCfg   string `json:"server_cfg" yaml:"server_cfg" toml:"server_cfg"`
	EntryList   string `json:"entry_list" yaml:"entry_list" toml:"entry_list"`
	DefaultCfg  string `json:"default_cfg" yaml:"default_cfg" toml:"default_cfg"`
	PresetsDir  string `json:"presets_dir" yaml:"presets_dir" toml:"presets_dir"`
	InstanceDir string `json:"instances_dir" yaml:"instances_dir" toml:"instances_dir"`

	ReadyMarker   string   `json:"ready_marker" yaml:"ready_marker" toml:"ready_marker"`
	StopTimeout   Duration `json:"stop_timeout" yaml:"stop_timeout" toml:"stop_timeout"`
	RemovalGrace  Duration `json:"removal_grace" yaml:"removal_grace" toml:"removal_grace"`
	RestartSettle Duration `json:"restart_settle" yaml:"restart_settle" toml:"restart_settle"`
	LogLines      int      `json:"log_lines" yaml:"log_lines" toml:"log_lines"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ExecutableName is the dedicated server binary name on this host.
func ExecutableName() string {
	if runtime.GOOS == "windows" {
		return "acServer.exe"
	}
	return "acServer"
}

// ApplyDefaults fills unspecified fields and expands "~" in paths.
// Paths derived from ServerDir are only set when ServerDir is known.
func (c *Config) ApplyDefaults() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "auto"
	}
	for _, p := range []*string{&c.ServerDir, &c.ServerExe, &c.ServerCfg, &c.EntryList, &c.DefaultCfg, &c.PresetsDir, &c.InstanceDir} {
		if *p == "" {
			continue
		}
		v, err := fsutil.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	if c.ServerDir != "" {
		if c.ServerExe == "" {
			c.ServerExe = filepath.Join(c.ServerDir, ExecutableName())
		}
		if c.ServerCfg == "" {
			c.ServerCfg = filepath.Join(c.ServerDir, "cfg", "server_cfg.ini")
		}
		if c.EntryList == "" {
			c.EntryList = filepath.Join(c.ServerDir, "cfg", "entry_list.ini")
		}
	}
	if c.EntryList == "" && c.ServerCfg != "" {
		c.EntryList = filepath.Join(filepath.Dir(c.ServerCfg), "entry_list.ini")
	}
	if c.PresetsDir == "" {
		c.PresetsDir = "presets"
	}
	if c.InstanceDir == "" {
		c.InstanceDir = "instances"
	}
	if c.ReadyMarker == "" {
		c.ReadyMarker = "Server started"
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = Duration(10 * time.Second)
	}
	if c.RemovalGrace <= 0 {
		c.RemovalGrace = Duration(5 * time.Second)
	}
	if c.RestartSettle <= 0 {
		c.RestartSettle = Duration(time.Second)
	}
	if c.LogLines <= 0 {
		c.LogLines = 1000
	}
	return nil
}

// Validate reports settings the service cannot run without.
func (c Config) Validate() error {
	if c.ServerExe == "" {
		return fmt.Errorf("server_exe or server_dir must be set")
	}
	if c.ServerCfg == "" {
		return fmt.Errorf("server_cfg or server_dir must be set")
	}
	switch c.LogFormat {
	case "auto", "json", "console":
	default:
		return fmt.Errorf("invalid log_format %q (want auto, json or console)", c.LogFormat)
	}
	return nil
}
