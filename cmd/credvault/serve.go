package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"credvault/internal/credentials"
	"credvault/internal/mediator"
	"credvault/internal/syncagent"
	"credvault/internal/vaultlock"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the access mediator on a loopback websocket",
		Long: `Run the access mediator on a loopback websocket.

Clients must present the bearer token from mediator.token in the config,
or the generated token written to <configdir>/mediator.token.
Only one serve process may own a vault at a time; the lease is kept in
the vault directory and released on exit.
With sync.on_change enabled, every successful store or delete triggers a
background sync to the configured runtime endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := a.cfg.Mediator

			lease := vaultlock.NewManager(a.store.Dir(), a.logger.With("lock"))
			owner := vaultlock.Owner{PID: os.Getpid(), Listen: cfg.Listen}
			if err := lease.Acquire(owner); err != nil {
				return err
			}
			leaseCtx, releaseLease := context.WithCancel(ctx)
			leaseDone := make(chan struct{})
			go func() {
				defer close(leaseDone)
				lease.Keep(leaseCtx, owner)
			}()
			defer func() {
				releaseLease()
				<-leaseDone
			}()

			if cfg.Token == "" {
				token, err := mediator.LoadOrCreateToken(tokenPath(), a.logger)
				if err != nil {
					return err
				}
				cfg.Token = token
			}

			if !a.backend.IsAvailable() {
				a.logger.Warn("mediator.encryption_unavailable", "Encryption backend unavailable, store requests will be refused", map[string]interface{}{
					"backend": a.backend.Name(),
				})
			}

			syncCfg, err := a.syncConfig()
			if err != nil {
				return err
			}
			agent := syncagent.New(syncCfg, a.store, a.logger.With("sync"))
			if a.cfg.Sync.SyncOnChange() {
				a.mediator.OnChange(func(op string, md credentials.Metadata) {
					agent.Trigger(ctx)
				})
			}

			server, err := mediator.NewServer(cfg, a.mediator, a.logger.With("mediator"))
			if err != nil {
				return err
			}

			err = server.ListenAndServe(ctx)
			agent.Wait()
			return err
		},
	}
}
