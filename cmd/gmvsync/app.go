package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/config"
	"github.com/JonMunkholm/gmvsync/internal/core"
	"github.com/JonMunkholm/gmvsync/internal/csv"
	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/reconcile"
	"github.com/JonMunkholm/gmvsync/internal/store/sqlstore"
)

// app holds the wired components shared by run and serve.
type app struct {
	cfg     *config.Config
	store   *sqlstore.Store
	history *core.History
	service *core.Service
}

// engineOptions converts the configuration to engine options.
func engineOptions(cfg *config.Config) reconcile.Options {
	return reconcile.Options{
		XCMProfile:             cfg.Sync.XCMProfile,
		SyncIndividuals:        cfg.Sync.SyncIndividuals,
		EmploymentMode:         reconcile.EmploymentMode(cfg.Sync.EmploymentMode),
		EmploymentRelationship: cfg.Sync.EmploymentRelationship,
		ChangeActivityTypeID:   cfg.Sync.ChangeActivityTypeID,
		OrphanPolicy:           entity.OrphanPolicy(cfg.Sync.OptionOrphanPolicy),
		IdentityType:           cfg.Sync.IdentityType,
		IdentifierPrefix:       cfg.Sync.IdentifierPrefix,
		Mappings:               entity.DefaultMappings(cfg.Sync.PhoneTypeMap),
		CSV: csv.Options{
			Comma:    cfg.Source.Comma(),
			Encoding: strings.ToLower(cfg.Source.Encoding),
		},
	}
}

// newApp connects the target store and the run history.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.URL, sqlstore.PoolOptions{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return nil, withExit(exitStore, err)
	}
	slog.Info("connected to target database", "driver", cfg.Store.Driver)

	history, err := core.OpenHistory(ctx, cfg.History.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	log := slog.Default()
	engine := reconcile.New(st, engineOptions(cfg), log)
	gate := core.NewRunGate(cfg.Server.RunWaitTime)
	return &app{
		cfg:     cfg,
		store:   st,
		history: history,
		service: core.NewService(engine, cfg.Source.BaseFolder, gate, history, log),
	}, nil
}

// Close releases the history and store connections.
func (a *app) Close() error {
	return errors.Join(a.history.Close(), a.store.Close())
}
