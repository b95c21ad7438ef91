package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display procmond's version and the Go toolchain it was built with.`,
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Println(version)
			return
		}
		fmt.Printf("procmond v%s\n", version)
		fmt.Printf("built with %s\n", runtime.Version())
	},
}

func init() {
	versionCmd.Flags().BoolP("short", "s", false, "Show only the version number")
}
