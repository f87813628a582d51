package main

import (
	"context"
	"fmt"
	"path/filepath"

	"credvault/internal/config"
	"credvault/internal/configdir"
	"credvault/internal/credentials"
	"credvault/internal/encryption"
	"credvault/internal/logging"
	"credvault/internal/mediator"
)

// app is the trusted-side runtime built once per invocation.
type app struct {
	cfg      config.Config
	logger   *logging.Logger
	backend  encryption.Backend
	store    *credentials.Store
	mediator *mediator.Mediator
}

func loadApp(opts *rootOptions) (*app, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	backend := encryption.New(cfg.Encryption.Backend, cfg.Encryption.Service, logger.With("encryption"))
	store := credentials.NewStore(cfg.Vault.Dir, backend, logger.With("vault"))

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		store:    store,
		mediator: mediator.New(store, logger.With("mediator")),
	}, nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File == "" {
		return logging.NewLogger(level), nil
	}
	logger, err := logging.NewFileLogger(level, cfg.File)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return logger, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

// syncTokenFileName holds the generated consumer token inside the config directory.
const syncTokenFileName = "sync.token"

func tokenPath() string {
	return filepath.Join(configdir.ConfigDir(), mediator.TokenFileName)
}

func syncTokenPath() string {
	return filepath.Join(configdir.ConfigDir(), syncTokenFileName)
}

// syncConfig returns the sync settings with a consumer token filled in,
// generating <configdir>/sync.token when none is configured.
func (a *app) syncConfig() (config.SyncConfig, error) {
	cfg := a.cfg.Sync
	if cfg.Token != "" {
		return cfg, nil
	}
	token, err := mediator.LoadOrCreateToken(syncTokenPath(), a.logger)
	if err != nil {
		return cfg, fmt.Errorf("sync token: %w", err)
	}
	cfg.Token = token
	return cfg, nil
}

// caller returns the mediator surface: in-process by default, or a websocket
// client to a running server with --remote.
func (a *app) caller(ctx context.Context, remote bool) (mediator.Caller, func(), error) {
	if !remote {
		return mediator.InProcess{M: a.mediator}, func() {}, nil
	}

	token := a.cfg.Mediator.Token
	if token == "" {
		t, err := mediator.ReadToken(tokenPath())
		if err != nil {
			return nil, nil, fmt.Errorf("no mediator token configured and none found at %s: %w", tokenPath(), err)
		}
		token = t
	}

	client, err := mediator.Dial(ctx, mediator.URL(a.cfg.Mediator.Listen), token)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}
