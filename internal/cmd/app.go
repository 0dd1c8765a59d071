package cmd

import (
	"context"
	"fmt"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/batch"
	"github.com/clive/jira-tui/internal/catalog"
	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/credentials"
	"github.com/clive/jira-tui/internal/logging"
	"github.com/clive/jira-tui/internal/session"
	"github.com/clive/jira-tui/internal/tracker"
)

// app wires the services every command needs
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *credentials.Store

	client    *api.Client // carries the session's token
	session   *session.Manager
	catalog   *catalog.Catalog
	tracker   tracker.Provider
	submitter *batch.Submitter
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if cfg.TUI.Debug {
		level = logging.LevelDebug
	}
	logger, err := logging.NewLogger(cfg.LogDir(), level)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	storage, err := credentials.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	store := credentials.NewStore(storage)

	base := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	mgr := session.NewManager(base, store, logger)
	client := base.WithTokenSource(mgr)

	cat := catalog.New(client, logger)
	mgr.OnChange(func(s session.Snapshot) {
		if !s.IsAuthenticated() {
			cat.Reset()
		}
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		session:   mgr,
		catalog:   cat,
		tracker:   tracker.NewJiraProvider(client, 0),
		submitter: batch.NewSubmitter(client, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("close credential store", "error", err)
	}
	a.logger.Close()
}

// resume restores the stored session. An unreachable backend leaves the
// stored login in place and is reported as an error.
func (a *app) resume(ctx context.Context) (session.Snapshot, error) {
	snap, err := a.session.Resume(ctx)
	if api.IsKind(err, api.KindTransport) {
		return snap, fmt.Errorf("cannot reach %s: %s", a.cfg.API.BaseURL, api.Message(err))
	}
	return snap, err
}

// requireSession is resume that also fails unless the session is valid
func (a *app) requireSession(ctx context.Context) (session.Snapshot, error) {
	snap, err := a.resume(ctx)
	if err != nil {
		return snap, err
	}
	if !snap.IsAuthenticated() {
		return snap, fmt.Errorf("not logged in: run 'jira-tui login' first")
	}
	return snap, nil
}

// withApp runs fn with a freshly wired app
func withApp(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
