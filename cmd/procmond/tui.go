package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shobhitka/procmond/internal/eventlog"
	"github.com/shobhitka/procmond/internal/signals"
	"github.com/shobhitka/procmond/internal/supervisor"
	"github.com/shobhitka/procmond/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive status dashboard",
	Long: `Launch an in-process status dashboard attached to its own
Controller: procmond has no network control-plane API, so tui brings up
the same roster serve would and renders a live-refreshing table of it,
rather than attaching to an already-running daemon over a socket.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := eventlog.New(cfg.Global.LogLevel, cfg.Global.LogFormat)

	specs, err := cfg.ToProgramSpecs()
	if err != nil {
		return fmt.Errorf("build program specs: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := supervisor.NewController(specs, supervisor.NewExecLauncher(log), log, supervisor.Config{
		QuickRestartWindow:    cfg.QuickRestartWindowDuration(),
		QuickRestartThreshold: cfg.Global.QuickRestartThreshold,
	})

	router := signals.NewRouter(ctrl, log)
	router.Start(ctx)
	defer router.Stop()

	go ctrl.Run(ctx)

	tuiErr := tui.Run(ctrl)

	cancel()
	<-ctrl.Stopped()

	if tuiErr != nil {
		return fmt.Errorf("tui: %w", tuiErr)
	}
	return nil
}
