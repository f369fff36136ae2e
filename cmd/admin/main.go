package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Maintenance commands for the booking database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config.yaml (defaults to $CONFIG_PATH or config.yaml)")

	rootCmd.AddCommand(seedSeatsCmd())
	rootCmd.AddCommand(staleOrdersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
