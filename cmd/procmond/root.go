package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shobhitka/procmond/internal/config"
)

const version = "1.0.0"

var cfgFile string

// exitCode lets subcommands distinguish process exit codes (spec.md
// §6.7) without calling os.Exit directly — calling it mid-RunE would
// skip every deferred shutdown (metrics server, tracing provider,
// signal router) queued up in that command. main passes it to os.Exit
// once rootCmd.Execute has returned and every defer has already run.
var exitCode int

// rootCmd is the base command when procmond is invoked with no
// subcommand; it behaves like `procmond serve`.
var rootCmd = &cobra.Command{
	Use:   "procmond",
	Short: "Minimal process supervisor for a fixed program roster",
	Long: `procmond supervises a fixed roster of long-running and one-shot
programs: it launches them, restarts the ones configured to restart on
exit, detects crash-loop flapping and tears the whole roster down when
it happens, and forwards an operator shutdown signal to every child
before exiting.

  procmond serve          # run the daemon
  procmond tui             # attached status dashboard
  procmond check-config    # validate the roster file
  procmond version         # print build info`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command; the caller is expected to os.Exit with
// the value left in exitCode once this returns.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to the roster YAML file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(tuiCmd)
}

// loadConfig resolves the roster from the --config flag when given, or
// from config.Load's PROCMOND_CONFIG/default-path search otherwise.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadWithEnvExpansion(cfgFile)
	}
	return config.Load()
}
