package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const banner = `
╔══════════════════════════════════════╗
║     Energy Fleet Simulator v0.1      ║
║                                      ║
╚══════════════════════════════════════╝
`

var rootCmd = &cobra.Command{
	Use:           "fleetsim",
	Short:         "Tick-driven simulation of an energy-consuming asset fleet",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newSimulateCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
