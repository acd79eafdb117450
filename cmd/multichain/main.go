// Command multichain reconciles per-chain token records into canonical
// multichain tokens.
//
// Subcommands:
//   - reconcile: one run, prints a report
//   - serve: periodic runs with /metrics and /healthz
//   - overrides: validate, import and export the override table
//   - migrate: apply embedded Postgres and ClickHouse migrations
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
