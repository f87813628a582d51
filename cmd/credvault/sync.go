package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"credvault/internal/syncagent"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every stored credential to the local runtime endpoint",
		Long: `Push every stored credential to the local runtime endpoint.

Each credential is delivered independently; a failure for one does not stop
the others. The full set is re-sent on every run. Requests carry the bearer
token from sync.token in the config, or the generated token written to
<configdir>/sync.token for the consumer to read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			syncCfg, err := a.syncConfig()
			if err != nil {
				return err
			}
			agent := syncagent.New(syncCfg, a.store, a.logger.With("sync"))
			report, err := agent.Sync(ctx)
			if report == nil {
				return err
			}

			if opts.jsonOutput {
				if jerr := printJSON(report); jerr != nil {
					return jerr
				}
			} else {
				printSyncReport(a.cfg.Sync.Endpoint, report)
			}

			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d credential(s) not delivered", len(report.Failures))
			}
			return nil
		},
	}
}

func printSyncReport(endpoint string, r *syncagent.Report) {
	fmt.Printf("%s %s\n\n", brand.Sprint("sync"), subtle.Sprint(endpoint))
	fmt.Printf("  Delivered: %s\n", good.Sprintf("%d", r.Delivered))
	if r.Skipped > 0 {
		fmt.Printf("  Skipped:   %s\n", warn.Sprintf("%d", r.Skipped))
	}
	if len(r.Failures) == 0 {
		return
	}
	fmt.Printf("  Failed:    %s\n\n", bad.Sprintf("%d", len(r.Failures)))
	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, []string{f.Provider, f.Type, f.Error})
	}
	printTable([]string{"PROVIDER", "TYPE", "ERROR"}, rows)
}
