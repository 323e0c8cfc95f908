// Package cli holds the command line entry points.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../src/cli.Version=...".
var Version = "dev"

// RootOptions are the flags shared by every command.
type RootOptions struct {
	ConfigPath string
}

// NewRootCmd returns the directreg command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}
	serve := newServeCmd(opts)

	cmd := &cobra.Command{
		Use:           "directreg",
		Short:         "Web front end for the self-reported transaction registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve, newVersionCmd())
	return cmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
