package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/lightsout/internal/agent"
	"github.com/julianstephens/lightsout/internal/config"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/metrics"
	"github.com/julianstephens/lightsout/internal/presenter"
)

type AgentCmd struct {
	DryRun bool `help:"Log the shutdown instead of powering off." name:"dry-run"`
}

func (cmd *AgentCmd) Run(ctx *Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst, err := agent.AcquireInstance(runCtx, ctx.Home)
	if err != nil {
		return err
	}
	defer func() {
		if err := inst.Release(); err != nil {
			logger.Warn("Failed to remove pid file", "error", err)
		}
	}()

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	ctx.Store.Files.OnConflict = recorder.IncCASConflict

	journal, closeJournal := ctx.OpenJournal(runCtx)
	defer closeJournal()

	proc, err := presenter.NewProcess(ctx.Home, ctx.Debug)
	if err != nil {
		return err
	}

	host, err := agent.New(ctx.Config, agent.Options{
		Clock:    ctx.Clock,
		Logger:   ctx.Logger("agent"),
		Nights:   ctx.Store.Night,
		Weeks:    ctx.Store.Weekly,
		Warnings: proc,
		Shutdown: presenter.NewShutdown(cmd.DryRun),
		Journal:  journal,
		Metrics:  recorder,
	})
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(ctx.ConfigPath, func() {
		host.ReloadConfig(config.MustLoad(ctx.ConfigPath))
	})
	if err != nil {
		logger.Warn("Config watcher unavailable", "error", err)
	} else if err := watcher.Start(runCtx); err != nil {
		logger.Warn("Config watcher failed to start", "error", err)
	} else {
		defer watcher.Stop()
	}

	if addr := ctx.Config.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, recorder)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("Agent started", "home", ctx.Home, "pid", os.Getpid())
	return host.Run(runCtx)
}

func serveMetrics(addr string, recorder *metrics.PrometheusRecorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)
	return srv
}
