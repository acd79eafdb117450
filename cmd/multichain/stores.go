package main

import (
	"context"
	"fmt"

	"multichain-token-lab/internal/indexer"
	"multichain-token-lab/internal/overrides"
	"multichain-token-lab/internal/pipeline"
	"multichain-token-lab/internal/storage"
	chstore "multichain-token-lab/internal/storage/clickhouse"
	"multichain-token-lab/internal/storage/memory"
	pgstore "multichain-token-lab/internal/storage/postgres"
)

// stores holds the storage implementations of one process.
type stores struct {
	tokens    storage.TokenRecordStore
	overrides storage.OverrideStore // nil in memory mode
	snapshots storage.SnapshotStore // nil without ClickHouse
}

// openStores creates memory stores, or Postgres stores plus ClickHouse
// snapshots when a ClickHouse DSN is configured.
func (a *app) openStores(ctx context.Context) (*stores, func(), error) {
	if err := a.cfg.RequireStorage(); err != nil {
		return nil, nil, err
	}

	if a.cfg.UseMemory {
		return &stores{
			tokens:    memory.NewTokenRecordStore(),
			snapshots: memory.NewSnapshotStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	pgObserver := pgstore.WithObserver(a.metrics.DBObserver("postgres"))

	s := &stores{
		tokens:    pgstore.NewTokenRecordStore(pool, pgObserver),
		overrides: pgstore.NewOverrideStore(pool, pgObserver),
	}

	if a.cfg.ClickhouseDSN == "" {
		a.logger.Warn().Msg("clickhouse_dsn not set, snapshots will not be written")
		return s, pool.Close, nil
	}

	// ClickHouse
	chConn, err := chstore.NewConn(ctx, a.cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	s.snapshots = chstore.NewSnapshotStore(chConn, chstore.WithObserver(a.metrics.DBObserver("clickhouse")))

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return s, cleanup, nil
}

// newRunner wires a pipeline runner. With fixtures the token store is seeded
// with the demo token set and its override table.
func (a *app) newRunner(ctx context.Context, s *stores, fixtures bool) (*pipeline.Runner, error) {
	opts := pipeline.Options{
		Chains:        a.cfg.Chains,
		TokenStore:    s.tokens,
		SnapshotStore: s.snapshots,
		SortOrder:     a.cfg.SortOrder,
		Logger:        a.logger,
		Metrics:       a.metrics,
	}

	switch {
	case fixtures:
		if err := pipeline.LoadFixtures(ctx, s.tokens); err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		opts.Overrides = pipeline.FixtureOverrides()
	case a.cfg.IndexerEndpoint != "":
		if len(a.cfg.Chains) == 0 {
			return nil, fmt.Errorf("chains are required when indexer_endpoint is set")
		}
		opts.Source = indexer.NewClient(a.cfg.IndexerEndpoint,
			indexer.WithConcurrency(a.cfg.IndexerConcurrency),
			indexer.WithMetrics(a.metrics),
			indexer.WithLogger(a.logger.With().Str("component", "indexer").Logger()),
		)
	}

	switch {
	case a.cfg.OverridesFile != "":
		table, err := overrides.LoadFile(a.cfg.OverridesFile)
		if err != nil {
			return nil, err
		}
		opts.Overrides = table
	case !fixtures && s.overrides != nil:
		opts.OverrideStore = s.overrides
	}

	return pipeline.New(opts)
}
