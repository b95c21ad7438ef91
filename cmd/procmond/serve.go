package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shobhitka/procmond/internal/audit"
	"github.com/shobhitka/procmond/internal/eventlog"
	"github.com/shobhitka/procmond/internal/metrics"
	"github.com/shobhitka/procmond/internal/signals"
	"github.com/shobhitka/procmond/internal/supervisor"
	"github.com/shobhitka/procmond/internal/tracing"
)

const (
	resourceSampleInterval = 15 * time.Second
	resourceSampleHistory  = 120
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the process supervisor daemon",
	Long: `Start procmond in daemon mode: bring up every program in the
roster, supervise restarts under the configured policy, and serve
metrics/tracing/audit observability until an operator shutdown signal
or a flap-abort tears the runlevel back down.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := eventlog.New(cfg.Global.LogLevel, cfg.Global.LogFormat)
	log.Info("procmond starting", "version", version, "pid", os.Getpid(), "programs", len(cfg.Programs))

	specs, err := cfg.ToProgramSpecs()
	if err != nil {
		return fmt.Errorf("build program specs: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := tracing.NewProvider(ctx, tracing.TracerConfig{
		Enabled:      cfg.Global.TracingEnabled,
		Exporter:     cfg.Global.TracingExporter,
		Endpoint:     cfg.Global.TracingEndpoint,
		ServiceName:  "procmond",
		Version:      version,
		ProgramCount: len(specs),
	}, log)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown error", "error", err)
		}
	}()

	auditLogger := audit.NewLogger(log, cfg.Global.AuditLogPath != "")

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	collector.SetBuildInfo(version, runtime.Version())
	resourceCollector := metrics.NewResourceCollector(registry, resourceSampleInterval, resourceSampleHistory, log)

	ctrl := supervisor.NewController(specs, supervisor.NewExecLauncher(log), log, supervisor.Config{
		QuickRestartWindow:    cfg.QuickRestartWindowDuration(),
		QuickRestartThreshold: cfg.Global.QuickRestartThreshold,
		Observer:              multiObserver{auditLogger, collector},
		Tracer:                tracingProvider.Tracer("procmond/supervisor"),
	})

	var metricsServer *metrics.Server
	if cfg.Global.MetricsEnabled {
		metricsServer = metrics.NewServer(cfg.Global.MetricsAddr, cfg.Global.MetricsPath, registry, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Warn("metrics server shutdown error", "error", err)
			}
		}()
	}

	router := signals.NewRouter(ctrl, log)
	router.Start(ctx)
	defer router.Stop()

	go sampleResources(ctx, ctrl, resourceCollector, log)

	runErr := ctrl.Run(ctx)
	<-ctrl.Stopped()

	exitCode = finalExitCode(ctrl, router, log)
	if exitCode != 0 {
		return nil
	}
	return runErr
}

// sampleResources periodically mirrors every active program's RSS/CPU
// onto the resource collector's buffers and gauges (spec.md §6.4). It
// runs detached from the Controller, so a panic here must not take the
// daemon down with it.
func sampleResources(ctx context.Context, ctrl *supervisor.Controller, rc *metrics.ResourceCollector, log *slog.Logger) {
	defer eventlog.RecoverPanic(log, "resource-sampler")

	ticker := time.NewTicker(rc.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshots, _ := ctrl.Snapshot()
			for _, s := range snapshots {
				if s.ChildID != 0 {
					rc.Sample(s.Name, s.ChildID)
				}
			}
		}
	}
}

// finalExitCode implements spec.md §6.7's distinguished exit codes from
// the state Controller.Run left behind: a fatal-fault signal (SIGSEGV)
// takes priority over everything else, then a flap-abort, then a clean
// operator shutdown.
func finalExitCode(ctrl *supervisor.Controller, router *signals.Router, log *slog.Logger) int {
	select {
	case <-router.FatalFault():
		log.Error("final-exit", "code", 2, "reason", "fatal-fault")
		// Controller.Run has already returned and every child has been
		// torn down by the time we get here, so it's safe to hand the
		// fault back to the OS: reset the fatal signal's default
		// disposition and re-raise it against ourselves (spec.md
		// §4.5/§7). Reraise only returns if that delivery failed, in
		// which case we still fall back to the synthetic exit code.
		router.Reraise(syscall.SIGSEGV)
		return 2
	default:
	}

	_, runlevel := ctrl.Snapshot()
	if runlevel == supervisor.RunlevelAbortingFlapping {
		log.Error("final-exit", "code", 1, "reason", "flap-abort")
		return 1
	}

	log.Info("final-exit", "code", 0, "reason", "clean-shutdown")
	return 0
}
