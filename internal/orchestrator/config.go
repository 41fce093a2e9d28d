package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultStopTimeout   = 10 * time.Second
	defaultRemovalGrace  = 5 * time.Second
	defaultRestartSettle = 1 * time.Second
	defaultOutputGrace   = 2 * time.Second
	defaultKillWait      = 5 * time.Second
	defaultLogLines      = 1000
	defaultReadyMarker   = "Server started"
)

// ConfigWriter commits an instance's configuration to disk right before the
// process is launched against it.
type ConfigWriter interface {
	WriteInstance(presetID string, cfg acconfig.Config) (acconfig.InstancePaths, error)
}

// Config encapsulates all tunables for Orchestrator construction.
type Config struct {
	// ServerExe is the dedicated server executable.
	ServerExe string
	// WorkDir is the process working directory; defaults to the executable's dir.
	WorkDir string
	// Env is appended to the inherited environment of every process.
	Env []string
	// ExtraArgs are appended after the config path arguments.
	ExtraArgs []string
	// ReadyMarker is the output substring that moves Starting to Running.
	ReadyMarker string

	StopTimeout   time.Duration
	RemovalGrace  time.Duration
	RestartSettle time.Duration
	// OutputGrace bounds how long output capture may outlive the process.
	OutputGrace time.Duration
	// KillWait bounds the wait for the exit after a forced kill.
	KillWait time.Duration
	// LogLines is the ring buffer capacity per stream.
	LogLines int

	Writer    ConfigWriter
	Publisher EventPublisher
	Logger    zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
	if c.RemovalGrace <= 0 {
		c.RemovalGrace = defaultRemovalGrace
	}
	if c.RestartSettle <= 0 {
		c.RestartSettle = defaultRestartSettle
	}
	if c.OutputGrace <= 0 {
		c.OutputGrace = defaultOutputGrace
	}
	if c.KillWait <= 0 {
		c.KillWait = defaultKillWait
	}
	if c.LogLines <= 0 {
		c.LogLines = defaultLogLines
	}
	if c.ReadyMarker == "" {
		c.ReadyMarker = defaultReadyMarker
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
