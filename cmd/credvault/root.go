package main

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

type rootOptions struct {
	configPath string
	jsonOutput bool
	remote     bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "credvault",
		Short: "Local encrypted vault for provider API credentials",
		Long: `credvault keeps third-party API credentials encrypted at rest using the
operating system's secret store, and exposes them only through a narrow
five-operation mediator.

Examples:
  credvault serve                         Start the access mediator
  echo "$KEY" | credvault set openai api-key
  credvault list
  credvault get openai api-key --reveal
  credvault sync                          Push credentials to the local runtime`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <configdir>/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&opts.remote, "remote", false, "talk to a running mediator instead of opening the vault in-process")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newServeCmd(opts),
		newSetCmd(opts),
		newGetCmd(opts),
		newDeleteCmd(opts),
		newListCmd(opts),
		newStatusCmd(opts),
		newSyncCmd(opts),
		newResetCmd(opts),
		newDiagCmd(opts),
		newTUICmd(opts),
		newVersionCmd(),
	)

	return root
}
