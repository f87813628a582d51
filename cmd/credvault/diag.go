package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"credvault/internal/config"
	"credvault/internal/diag"
)

func newDiagCmd(opts *rootOptions) *cobra.Command {
	var (
		output   string
		noLogs   bool
		noConfig bool
	)

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Write a redacted support bundle (no credential contents)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			dc := diag.NewConfig(version)
			if output != "" {
				dc.OutputPath = output
			}
			dc.ConfigPath = opts.configPath
			if dc.ConfigPath == "" {
				dc.ConfigPath = config.Path()
			}
			dc.LogFile = a.cfg.Logging.File
			dc.VaultDir = a.store.Dir()
			dc.IncludeLogs = !noLogs
			dc.IncludeConfig = !noConfig
			dc.Backend = a.backend.Name()
			dc.BackendAvailable = a.backend.IsAvailable()

			path, err := diag.NewPackager(dc, a.logger.With("diag")).CreatePackage()
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(map[string]string{"output": path})
			}
			fmt.Printf("%s %s\n", good.Sprint("Wrote"), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default credvault-diag-<timestamp>.zip)")
	cmd.Flags().BoolVar(&noLogs, "no-logs", false, "exclude the log file")
	cmd.Flags().BoolVar(&noConfig, "no-config", false, "exclude the redacted config file")
	return cmd
}
