package main

import (
	"github.com/aneeshsharma72067/reposage/internal/transport/worker"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume analysis jobs until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		// the API process owns the schema
		cfg.Postgres.SkipMigrations = true

		a, closeApp, err := bootstrap(ctx, cfg, log)
		if err != nil {
			log.Errorw("startup failed", "error", err)
			return err
		}
		defer closeApp()

		return worker.New(log, a.uc, a.queue).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
