package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shobhitka/procmond/internal/config"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the roster configuration file",
	Long:  `Validate procmond's roster YAML and report errors, warnings, and suggestions.`,
	RunE:  runCheckConfig,
}

var (
	checkConfigStrict bool
	checkConfigJSON   bool
	checkConfigQuiet  bool
)

func init() {
	checkConfigCmd.Flags().BoolVar(&checkConfigStrict, "strict", false, "Fail on warnings too, not just errors")
	checkConfigCmd.Flags().BoolVar(&checkConfigJSON, "json", false, "Output validation results as JSON")
	checkConfigCmd.Flags().BoolVar(&checkConfigQuiet, "quiet", false, "Show only the summary line")
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		exitCode = 1
		if checkConfigJSON {
			fmt.Fprintf(os.Stderr, `{"error":%q}`+"\n", err.Error())
			return nil
		}
		fmt.Fprintf(os.Stderr, "configuration load failed: %v\n", err)
		return nil
	}

	result, validateErr := cfg.ValidateComprehensive()

	if checkConfigJSON {
		payload := config.FormatValidationJSON(result)
		payload["version"] = cfg.Version
		payload["program_count"] = len(cfg.Programs)
		encoded, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Println(string(encoded))
	} else if checkConfigQuiet {
		fmt.Println(config.FormatValidationSummary(result))
	} else {
		if result.TotalIssues() > 0 {
			fmt.Print(config.FormatValidationReport(result))
		}
		fmt.Printf("\nroster: %s (version %s, %d programs)\n", configSourceLabel(), cfg.Version, len(cfg.Programs))
		if result.TotalIssues() == 0 {
			fmt.Println("configuration is valid")
		}
	}

	if validateErr != nil {
		exitCode = 1
		return nil
	}
	if checkConfigStrict && result.HasWarnings() {
		if !checkConfigJSON {
			fmt.Println("validation failed in strict mode: warnings present")
		}
		exitCode = 1
	}
	return nil
}

func configSourceLabel() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "(default search path)"
}
