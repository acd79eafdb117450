// Package pipeline runs one reconciliation end to end:
// load tokens → group → validate overrides → reconcile → snapshot → metrics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/identity"
	"multichain-token-lab/internal/idhash"
	"multichain-token-lab/internal/observability"
	"multichain-token-lab/internal/overrides"
	"multichain-token-lab/internal/reconcile"
	"multichain-token-lab/internal/storage"
)

// Run statuses reported to metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrNoTokenStore is returned by New when Options.TokenStore is nil.
var ErrNoTokenStore = errors.New("pipeline: token store is required")

// TokenSource fetches fresh token records for a set of chains.
type TokenSource interface {
	FetchTokens(ctx context.Context, chainIDs []uint64) ([]domain.TokenRecord, error)
}

// Options for creating Runner.
type Options struct {
	// Source refreshes TokenStore before each run. Nil reconciles what the store already holds.
	Source TokenSource
	Chains []uint64

	// Required
	TokenStore storage.TokenRecordStore

	// Optional. Nil skips writing run outputs.
	SnapshotStore storage.SnapshotStore

	// OverrideStore, when set, is read on every run and takes precedence over Overrides.
	OverrideStore storage.OverrideStore
	Overrides     *overrides.Table

	SortOrder domain.SortOrder
	Logger    zerolog.Logger
	Metrics   *observability.Metrics

	// Clock and NewRunID default to time.Now and uuid.NewString.
	Clock    func() time.Time
	NewRunID func() string
}

// Runner coordinates one reconciliation per Run call.
type Runner struct {
	source        TokenSource
	chains        []uint64
	tokenStore    storage.TokenRecordStore
	snapshotStore storage.SnapshotStore
	overrideStore storage.OverrideStore
	overrides     *overrides.Table
	sortOrder     domain.SortOrder
	logger        zerolog.Logger
	metrics       *observability.Metrics
	clock         func() time.Time
	newRunID      func() string
}

// New creates a new Runner.
func New(opts Options) (*Runner, error) {
	if opts.TokenStore == nil {
		return nil, ErrNoTokenStore
	}

	r := &Runner{
		source:        opts.Source,
		chains:        opts.Chains,
		tokenStore:    opts.TokenStore,
		snapshotStore: opts.SnapshotStore,
		overrideStore: opts.OverrideStore,
		overrides:     opts.Overrides,
		sortOrder:     opts.SortOrder,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
		newRunID:      opts.NewRunID,
	}
	if r.overrides == nil {
		r.overrides = overrides.Empty()
	}
	if r.sortOrder.Field == "" {
		r.sortOrder = domain.DefaultSortOrder()
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.newRunID == nil {
		r.newRunID = uuid.NewString
	}
	return r, nil
}

// RunResult contains results from one run.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Tokens     int
	Warnings   []overrides.Warning
	Reconciled *reconcile.Result
	Snapshots  int
}

// Run executes one reconciliation.
// Phases:
//  1. Load tokens (refresh from Source when configured)
//  2. Load and validate the override table
//  3. Group tokens with the identity heuristic
//  4. Reconcile groups with the override table
//  5. Write snapshots
func (r *Runner) Run(ctx context.Context) (_ *RunResult, err error) {
	started := r.clock()
	result := &RunResult{RunID: r.newRunID(), StartedAt: started}
	logger := r.logger.With().Str("run_id", result.RunID).Logger()

	defer func() {
		result.Duration = r.clock().Sub(started)
		status := StatusSuccess
		var stats observability.RunStats
		if err != nil {
			status = StatusError
			logger.Error().Err(err).Dur("duration", result.Duration).Msg("reconciliation run failed")
		} else {
			stats = runStats(result)
		}
		r.metrics.RecordRun(status, result.Duration.Seconds(), stats, r.clock().Unix())
	}()

	// Phase 1: tokens
	tokens, err := r.loadTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tokens: %w", err)
	}
	result.Tokens = len(tokens)
	logger.Info().Int("tokens", len(tokens)).Msg("tokens loaded")

	// Phase 2: overrides
	table, err := r.loadOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	result.Warnings = r.validateOverrides(logger, table, tokens)

	// Phase 3: grouping
	grouped := identity.Group(tokens)
	logger.Debug().
		Int("groups", len(grouped.Groups)).
		Int("discarded", len(grouped.Discarded)).
		Msg("tokens grouped")

	// Phase 4: reconciliation
	reconciler := reconcile.New(table, reconcile.WithLogger(logger))
	result.Reconciled = reconciler.Reconcile(reconcile.Input{
		ExistingGroups:    grouped.Groups,
		ExistingDiscarded: grouped.Discarded,
		AllTokens:         tokens,
		SortOrder:         r.sortOrder,
	})

	// Phase 5: snapshots
	if r.snapshotStore != nil && len(result.Reconciled.MultichainTokens) > 0 {
		snaps := BuildSnapshots(result.RunID, started, result.Reconciled.MultichainTokens)
		if err := r.snapshotStore.InsertBulk(ctx, snaps); err != nil {
			return nil, fmt.Errorf("write snapshots: %w", err)
		}
		result.Snapshots = len(snaps)
	}

	logger.Info().
		Int("multichain", len(result.Reconciled.MultichainTokens)).
		Int("discarded", len(result.Reconciled.DiscardedTokens)).
		Int("unresolved", len(result.Reconciled.Diagnostics.UnresolvedIDs)).
		Int("snapshots", result.Snapshots).
		Msg("reconciliation run completed")

	return result, nil
}

// loadTokens refreshes the store from the source, then reads it back in
// store order so every run sees the same input for the same data.
func (r *Runner) loadTokens(ctx context.Context) ([]domain.TokenRecord, error) {
	if r.source != nil {
		fetched, err := r.source.FetchTokens(ctx, r.chains)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		records := make([]*domain.TokenRecord, len(fetched))
		for i := range fetched {
			if fetched[i].NormalizedName == "" && fetched[i].NormalizedSymbol == "" {
				identity.Normalize(&fetched[i])
			}
			records[i] = &fetched[i]
		}
		if err := r.tokenStore.UpsertBulk(ctx, records); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	stored, err := r.tokenStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	chains := make(map[uint64]struct{}, len(r.chains))
	for _, c := range r.chains {
		chains[c] = struct{}{}
	}

	tokens := make([]domain.TokenRecord, 0, len(stored))
	for _, rec := range stored {
		if len(chains) > 0 {
			if _, ok := chains[rec.ChainID]; !ok {
				continue
			}
		}
		if rec.NormalizedName == "" && rec.NormalizedSymbol == "" {
			identity.Normalize(rec)
		}
		tokens = append(tokens, *rec)
	}
	return tokens, nil
}

func (r *Runner) loadOverrides(ctx context.Context) (*overrides.Table, error) {
	if r.overrideStore == nil {
		return r.overrides, nil
	}
	return r.overrideStore.GetAll(ctx)
}

func (r *Runner) validateOverrides(logger zerolog.Logger, table *overrides.Table, tokens []domain.TokenRecord) []overrides.Warning {
	known := make(map[domain.TokenID]struct{}, len(tokens))
	for _, t := range tokens {
		known[t.ID] = struct{}{}
	}

	warnings := overrides.Validate(table, func(id domain.TokenID) bool {
		_, ok := known[id]
		return ok
	})
	for _, w := range warnings {
		logger.Warn().
			Str("kind", string(w.Kind)).
			Str("token_id", string(w.TokenID)).
			Str("target", string(w.Target)).
			Msg("override table warning")
		r.metrics.RecordOverrideWarning(string(w.Kind))
	}
	return warnings
}

// BuildSnapshots converts multichain tokens into run snapshots.
func BuildSnapshots(runID string, computedAt time.Time, tokens []domain.MultichainToken) []*domain.MultichainSnapshot {
	snaps := make([]*domain.MultichainSnapshot, 0, len(tokens))
	for i := range tokens {
		t := &tokens[i]
		members := t.MemberIDs()
		snaps = append(snaps, &domain.MultichainSnapshot{
			RunID:               runID,
			ComputedAt:          computedAt.UnixMilli(),
			AnchorID:            t.AnchorID,
			Name:                t.Name,
			Symbol:              t.Symbol,
			ChainCount:          uint32(len(t.Addresses)),
			MemberIDs:           members,
			MembershipHash:      idhash.MembershipHash(members),
			TotalValuePooledUsd: t.TotalValuePooledUsd,
		})
	}
	return snaps
}

func runStats(result *RunResult) observability.RunStats {
	stats := observability.RunStats{Tokens: result.Tokens}
	if rec := result.Reconciled; rec != nil {
		stats.Multichain = len(rec.MultichainTokens)
		stats.Discarded = len(rec.DiscardedTokens)
		stats.UnresolvedIDs = len(rec.Diagnostics.UnresolvedIDs)
		stats.Merges = rec.Diagnostics.Merges
	}
	return stats
}
