package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
	"acmanager/internal/common/fsutil"
	"acmanager/internal/config"
	"acmanager/internal/configstate"
	"acmanager/internal/httpapi"
	"acmanager/internal/orchestrator"
	"acmanager/internal/preset"
)

const shutdownGrace = 5 * time.Second

// runServe blocks until ctx is canceled or SIGINT/SIGTERM arrives, then shuts
// the HTTP server down and stops every managed server.
func runServe(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := wire(cfg, logger)

	// Lifecycle operations started through HTTP run on baseCtx; it is only
	// canceled after StopAll so in-flight stops finish gracefully.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	watchDone := make(chan struct{})
	defer func() { <-watchDone }()
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		defer close(watchDone)
		err := acconfig.WatchFile(watchCtx, cfg.ServerCfg, 0, logger, func() {
			logger.Info().Str("path", cfg.ServerCfg).Msg("active config changed on disk")
		})
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.ServerCfg).Msg("active config watch disabled")
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: app.handler, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	logger.Info().Str("addr", ln.Addr().String()).Str("server_exe", cfg.ServerExe).Msg("acmanager listening")
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopAll(cfg, logger)
			return err
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	app.stopAll(cfg, logger)
	return nil
}

type app struct {
	handler http.Handler
	orch    *orchestrator.Orchestrator
}

func wire(cfg config.Config, logger zerolog.Logger) *app {
	store := acconfig.NewStore(acconfig.StoreOptions{
		ActivePath:    cfg.ServerCfg,
		EntryListPath: cfg.EntryList,
		DefaultPath:   cfg.DefaultCfg,
		InstancesDir:  cfg.InstanceDir,
		Logger:        logger,
	})
	orch := orchestrator.New(orchestrator.Config{
		ServerExe:     cfg.ServerExe,
		WorkDir:       cfg.ServerDir,
		ReadyMarker:   cfg.ReadyMarker,
		StopTimeout:   cfg.StopTimeout.D(),
		RemovalGrace:  cfg.RemovalGrace.D(),
		RestartSettle: cfg.RestartSettle.D(),
		LogLines:      cfg.LogLines,
		Writer:        store,
		Logger:        logger,
	})
	cs := configstate.New(configstate.Options{Store: store, Runner: orch, Logger: logger})
	presets := preset.NewStore(cfg.PresetsDir, cs, logger)

	httpapi.SetLogger(logger)
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetDefaultLogLines(200)

	h := httpapi.NewMux(httpapi.Services{
		Config:    cs,
		Presets:   presets,
		Instances: orch,
		Active:    store,
		Ready:     func() bool { return fsutil.IsRegularFile(cfg.ServerExe) },
	})
	return &app{handler: h, orch: orch}
}

func (a *app) stopAll(cfg config.Config, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout.D()+shutdownGrace)
	defer cancel()
	for _, r := range a.orch.StopAll(ctx) {
		if !r.Stopped {
			logger.Error().Str("preset", r.PresetID).Str("error", r.Error).Msg("stop on shutdown failed")
		}
	}
}
