package main

import (
	"github.com/aneeshsharma72067/reposage/internal/repository/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := postgres.New(ctx, log, cfg).Migrate(ctx); err != nil {
			log.Errorw("migration failed", "error", err, "dir", cfg.Postgres.MigrationsDir)
			return err
		}
		log.Infow("migrations applied", "dir", cfg.Postgres.MigrationsDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
