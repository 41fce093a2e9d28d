package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"acmanager/internal/config"
)

// Version is stamped at build time with -ldflags "-X acmanager/internal/cli.Version=...".
var Version = "dev"

// Options are the command-line overrides applied on top of the config file.
type Options struct {
	ConfigPath string
	Addr       string
	LogLevel   string
	LogFormat  string
	ServerDir  string
	ServerExe  string
	ServerCfg  string
	PresetsDir string
	InstDir    string
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := buildRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "acmanager: %v\n", err)
		return 1
	}
	return 0
}

func buildRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &Options{ConfigPath: os.Getenv(config.EnvConfigPath)}
	root := &cobra.Command{
		Use:           "acmanager",
		Short:         "Run and configure several dedicated racing servers from one control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Config file (.yaml, .json or .toml); defaults to $"+config.EnvConfigPath)
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&opts.LogFormat, "log-format", "", "Log format: auto|json|console")

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Start the HTTP control plane",
		Example: "  acmanager serve --server-dir ~/acserver --addr :8080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, stderr)
		},
	}
	sf := serve.Flags()
	sf.StringVar(&opts.Addr, "addr", "", "HTTP listen address (default :8080)")
	sf.StringVar(&opts.ServerDir, "server-dir", "", "Dedicated server install directory")
	sf.StringVar(&opts.ServerExe, "server-exe", "", "Server executable (default <server-dir>/acServer)")
	sf.StringVar(&opts.ServerCfg, "server-cfg", "", "Active server_cfg.ini (default <server-dir>/cfg/server_cfg.ini)")
	sf.StringVar(&opts.PresetsDir, "presets-dir", "", "Preset storage directory")
	sf.StringVar(&opts.InstDir, "instances-dir", "", "Per-instance config directory")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "acmanager", Version)
		},
	}

	root.AddCommand(serve, version)
	return root
}

// resolveConfig loads the config file (if any), applies flag overrides and
// defaults, and validates the result.
func resolveConfig(o Options) (config.Config, error) {
	var cfg config.Config
	if o.ConfigPath != "" {
		c, err := config.Load(o.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", o.ConfigPath, err)
		}
		cfg = c
	}
	override(&cfg.Addr, o.Addr)
	override(&cfg.LogLevel, o.LogLevel)
	override(&cfg.LogFormat, o.LogFormat)
	override(&cfg.ServerDir, o.ServerDir)
	override(&cfg.ServerExe, o.ServerExe)
	override(&cfg.ServerCfg, o.ServerCfg)
	override(&cfg.PresetsDir, o.PresetsDir)
	override(&cfg.InstanceDir, o.InstDir)
	if err := cfg.ApplyDefaults(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
