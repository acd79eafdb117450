package main

import (
	"fmt"

	"github.com/spf13/cobra"

	chstore "multichain-token-lab/internal/storage/clickhouse"
	"multichain-token-lab/internal/storage/migrations"
	pgstore "multichain-token-lab/internal/storage/postgres"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded PostgreSQL and ClickHouse migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := root.app
			ctx := cmd.Context()

			if a.cfg.PostgresDSN == "" && a.cfg.ClickhouseDSN == "" {
				return fmt.Errorf("migrate needs postgres_dsn and/or clickhouse_dsn")
			}

			if a.cfg.PostgresDSN != "" {
				pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				defer pool.Close()

				applied, err := migrations.ApplyPostgres(ctx, pool)
				if err != nil {
					return err
				}
				a.logger.Info().Strs("versions", applied).Msg("postgres migrations applied")
			}

			if a.cfg.ClickhouseDSN != "" {
				conn, err := chstore.EnsureDatabase(ctx, a.cfg.ClickhouseDSN)
				if err != nil {
					return err
				}
				defer conn.Close()

				applied, err := migrations.ApplyClickhouse(ctx, conn)
				if err != nil {
					return err
				}
				a.logger.Info().Strs("versions", applied).Msg("clickhouse migrations applied")
			}

			return nil
		},
	}
}
