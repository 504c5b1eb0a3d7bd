package main

import (
	"github.com/spf13/cobra"

	"github.com/zaqqye/defense_backend_v1/internal/config"
	"github.com/zaqqye/defense_backend_v1/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL schema and seed default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver != config.DriverPostgres {
			logger.Info("nothing to migrate for store driver " + cfg.StoreDriver)
			return nil
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		if err := database.SeedSettings(db); err != nil {
			return err
		}
		logger.Info("schema migrated")
		return nil
	},
}
