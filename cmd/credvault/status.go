package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"credvault/internal/config"
	"credvault/internal/vaultlock"
)

type statusReport struct {
	ConfigPath   string `json:"config_path"`
	VaultDir     string `json:"vault_dir"`
	Backend      string `json:"backend"`
	Available    bool   `json:"available"`
	Credentials  int    `json:"credentials"`
	Listen       string `json:"mediator_listen"`
	SyncEndpoint string `json:"sync_endpoint"`
	SyncOnChange bool   `json:"sync_on_change"`
	ServedBy     int    `json:"served_by_pid,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show vault location, encryption backend and credential count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			items, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}

			owner, err := vaultlock.NewManager(a.store.Dir(), a.logger).Status()
			if err != nil {
				return err
			}

			cfgPath := opts.configPath
			if cfgPath == "" {
				cfgPath = config.Path()
			}

			report := statusReport{
				ConfigPath:   cfgPath,
				VaultDir:     a.store.Dir(),
				Backend:      a.backend.Name(),
				Available:    a.backend.IsAvailable(),
				Credentials:  len(items),
				Listen:       a.cfg.Mediator.Listen,
				SyncEndpoint: a.cfg.Sync.Endpoint,
				SyncOnChange: a.cfg.Sync.SyncOnChange(),
			}
			if owner != nil {
				report.ServedBy = owner.Owner.PID
			}

			if opts.jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("%s status\n\n", brand.Sprint("credvault"))
			fmt.Printf("  Config:       %s\n", report.ConfigPath)
			fmt.Printf("  Vault:        %s\n", report.VaultDir)
			fmt.Printf("  Backend:      %s (%s)\n", report.Backend, statusWord(report.Available, "available", "unavailable"))
			fmt.Printf("  Credentials:  %d\n", report.Credentials)
			if report.ServedBy != 0 {
				fmt.Printf("  Mediator:     ws://%s (%s, pid %d)\n", report.Listen, good.Sprint("running"), report.ServedBy)
			} else {
				fmt.Printf("  Mediator:     ws://%s (%s)\n", report.Listen, subtle.Sprint("not running"))
			}
			fmt.Printf("  Sync:         %s (on change: %t)\n", report.SyncEndpoint, report.SyncOnChange)
			return nil
		},
	}
}
