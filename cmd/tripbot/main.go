package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFlag string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tripbot",
		Short:         "Telegram assistant for trips, travel documents and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config.yaml (defaults to $CONFIG_PATH, then config.yaml)")

	root.AddCommand(newRunCmd(), newMigrateCmd(), newRemindCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
