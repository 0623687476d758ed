package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "deskhost",
		Short: "Desktop application host supervisor",
		Long: `deskhost launches and supervises the frontend and backend service
processes of a desktop application, health-checks them, and guarantees that
both processes and their TCP ports are reclaimed on any termination path.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(
		createRunCommand(flags),
		createStatusCommand(flags),
	)
	return root
}
