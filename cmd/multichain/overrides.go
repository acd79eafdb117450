package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/overrides"
	"multichain-token-lab/internal/pipeline"
)

func newOverridesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Inspect and manage the override table",
	}
	cmd.AddCommand(
		newOverridesValidateCmd(root),
		newOverridesImportCmd(root),
		newOverridesExportCmd(root),
	)
	return cmd
}

func newOverridesValidateCmd(root *rootOptions) *cobra.Command {
	var (
		fixtures bool
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check an override table against the known token records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := root.app
			ctx := cmd.Context()

			path := a.cfg.OverridesFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no override file given")
			}

			table, err := overrides.LoadFile(path)
			if err != nil {
				return err
			}

			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if fixtures {
				if err := pipeline.LoadFixtures(ctx, s.tokens); err != nil {
					return fmt.Errorf("load fixtures: %w", err)
				}
			}

			records, err := s.tokens.GetAll(ctx)
			if err != nil {
				return fmt.Errorf("load token records: %w", err)
			}
			known := make(map[domain.TokenID]struct{}, len(records))
			for _, rec := range records {
				known[rec.ID] = struct{}{}
			}

			warnings := overrides.Validate(table, func(id domain.TokenID) bool {
				_, ok := known[id]
				return ok
			})

			out := cmd.OutOrStdout()
			for _, w := range warnings {
				fmt.Fprintln(out, w.String())
			}
			fmt.Fprintf(out, "%d entries, %d warnings\n", table.Len(), len(warnings))

			if strict && len(warnings) > 0 {
				return fmt.Errorf("override table has %d warnings", len(warnings))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fixtures, "fixtures", false, "validate against the built-in demo token set")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any warning is reported")

	return cmd
}

func newOverridesImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Write every entry of an override file to the override store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := root.app
			ctx := cmd.Context()

			table, err := overrides.LoadFile(args[0])
			if err != nil {
				return err
			}

			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			if s.overrides == nil {
				return fmt.Errorf("override store requires postgres_dsn")
			}

			for _, id := range table.IDs() {
				entry, _ := table.Lookup(id)
				if err := s.overrides.Put(ctx, id, entry); err != nil {
					return fmt.Errorf("put override %s: %w", id, err)
				}
			}

			a.logger.Info().Int("entries", table.Len()).Str("file", args[0]).Msg("overrides imported")
			return nil
		},
	}
}

func newOverridesExportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the stored override table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := root.app
			ctx := cmd.Context()

			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			if s.overrides == nil {
				return fmt.Errorf("override store requires postgres_dsn")
			}

			table, err := s.overrides.GetAll(ctx)
			if err != nil {
				return err
			}
			data, err := overrides.Marshal(table)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
