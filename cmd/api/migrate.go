package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flicky/go-food-api/internal/repository"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.ShutdownTimeout)
			defer cancel()

			pool, err := connectPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema applied")
			return nil
		},
	}
}
