package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"multichain-token-lab/internal/observability"
	"multichain-token-lab/internal/pipeline"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var fixtures bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reconcile periodically and expose /metrics, /healthz and /status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := root.app
			ctx := cmd.Context()

			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(ctx, s, fixtures)
			if err != nil {
				return err
			}

			srv := newServer(runner, a.registry, a.cfg.Interval, a.logger)
			return srv.Run(ctx, a.cfg.MetricsAddr)
		},
	}

	cmd.Flags().Duration("interval", 15*time.Minute, "time between reconciliation runs")
	cmd.Flags().String("metrics-addr", ":9090", "HTTP listen address for /metrics, /healthz and /status")
	cmd.Flags().BoolVar(&fixtures, "fixtures", false, "serve the built-in demo token set")

	return cmd
}

// runner is the part of pipeline.Runner the server drives.
type runner interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
}

// server runs reconciliations on a schedule and reports their state.
type server struct {
	runner   runner
	gatherer prometheus.Gatherer
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	// State
	mu         sync.Mutex
	started    time.Time
	running    bool
	runs       int
	failures   int
	lastRunAt  time.Time
	lastRunID  string
	lastError  string
	lastTokens int
}

func newServer(r runner, g prometheus.Gatherer, interval time.Duration, logger zerolog.Logger) *server {
	return &server{
		runner:   r,
		gatherer: g,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run serves HTTP and runs the scheduler until ctx is cancelled or the
// listener fails.
func (s *server) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.started = s.now()
	s.mu.Unlock()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = s.schedule(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http server shutdown")
	}
	<-schedDone

	s.logger.Info().Msg("shutdown complete")
	return runErr
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.HandlerFor(s.gatherer))
	return mux
}

func (s *server) schedule(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	// Run immediately on start
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes one reconciliation unless one is already in flight.
func (s *server) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("reconciliation already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	result, err := s.runner.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRunAt = s.now()
	if err != nil {
		s.failures++
		s.lastError = err.Error()
		s.logger.Error().Err(err).Msg("reconciliation failed")
		return
	}
	s.lastError = ""
	s.lastRunID = result.RunID
	s.lastTokens = len(result.Reconciled.MultichainTokens)
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Running         bool      `json:"running"`
	Runs            int       `json:"runs"`
	Failures        int       `json:"failures"`
	LastRunAt       time.Time `json:"last_run_at,omitempty"`
	LastRunID       string    `json:"last_run_id,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	MultichainCount int       `json:"multichain_tokens"`
}

func (s *server) status() StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "ok"
	if s.lastError != "" {
		status = "degraded"
	}
	return StatusResponse{
		Status:          status,
		Uptime:          s.now().Sub(s.started).Truncate(time.Second).String(),
		Running:         s.running,
		Runs:            s.runs,
		Failures:        s.failures,
		LastRunAt:       s.lastRunAt,
		LastRunID:       s.lastRunID,
		LastError:       s.lastError,
		MultichainCount: s.lastTokens,
	}
}

// handleHealth reports 503 while the latest run failed.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.status().Status != "ok" {
		http.Error(w, "last reconciliation failed", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Warn().Err(err).Msg("encode status")
	}
}
