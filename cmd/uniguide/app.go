package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ArnabNath1/ArnabUniGuide/internal/account"
	"github.com/ArnabNath1/ArnabUniGuide/internal/config"
	"github.com/ArnabNath1/ArnabUniGuide/internal/mutation"
	"github.com/ArnabNath1/ArnabUniGuide/internal/remote"
	"github.com/ArnabNath1/ArnabUniGuide/internal/storage"
	"github.com/ArnabNath1/ArnabUniGuide/internal/workspace"
)

// app is what one command invocation works with.
type app struct {
	cfg    config.Config
	store  *storage.Store
	queue  *mutation.Queue
	keeper *account.Keeper
	client *remote.Client
	ws     *workspace.Workspace
}

// openStore loads config and opens the local database without requiring a
// signed-in identity.
func openStore() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if !verbose {
		logLevel.Set(cfg.LogLevel())
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return &app{
		cfg:    cfg,
		store:  store,
		keeper: account.NewKeeper(store),
		client: remote.New(remote.Config{
			BaseURL: cfg.Remote.BaseURL,
			Token:   cfg.Remote.Token,
			Timeout: cfg.Remote.Timeout,
			Retries: cfg.Remote.Retries,
		}),
	}, nil
}

// openApp opens the workspace of the signed-in identity and loads its
// profile and session list.
func openApp(ctx context.Context) (*app, error) {
	a, err := openStore()
	if err != nil {
		return nil, err
	}
	id, err := a.keeper.Current(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.queue = mutation.NewQueue(a.store)
	a.ws = workspace.New(id, a.client, a.queue, workspace.Options{
		Greeting: a.cfg.Chat.Greeting,
		Keeper:   a.keeper,
	})
	if err := a.ws.Open(ctx); err != nil {
		a.close()
		return nil, err
	}
	slog.Debug("workspace open", "email", id.Email, "onboarded", a.ws.Onboarded())
	return a, nil
}

func (a *app) close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

// requireOnboarded fails with a hint when no profile has been saved yet.
func (a *app) requireOnboarded() error {
	if !a.ws.Onboarded() {
		return fmt.Errorf("%w; run `uniguide profile onboard` first", workspace.ErrOnboardingRequired)
	}
	return nil
}
