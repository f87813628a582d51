package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"credvault/internal/configdir"
	"credvault/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive credential manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stderr logging would draw over the alternate screen
			if opts.logLevel == "" {
				opts.logLevel = "error"
			}
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			c, closeFn, err := a.caller(cmd.Context(), opts.remote)
			if err != nil {
				return err
			}
			defer closeFn()

			model := tui.NewModel(c, a.logger.With("tui"), configdir.ConfigDir())
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
}
