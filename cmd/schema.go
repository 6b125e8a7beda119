package cmd

import (
	"fmt"

	"api-poller/core/config"
	"api-poller/core/database"
	"api-poller/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateFlag bool

// schemaCmd checks the database schema against the models.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check that every table and column the service uses exists",
	Long:  `Compares the live database schema with the expected tables and columns. With --migrate, missing tables and columns are created first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}

		if migrateFlag {
			if err := migrate(db); err != nil {
				return err
			}
			logg.Info("Database schema migrated")
		}

		issues, err := database.CheckSchema(db, expectedSchema())
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if len(issues) == 0 {
			logg.Info("Schema OK")
			return nil
		}

		for _, issue := range issues {
			if issue.Absent {
				logg.Error("Table missing", zap.String("table", issue.Table))
				continue
			}
			logg.Error("Columns missing", zap.String("table", issue.Table), zap.Strings("columns", issue.Missing))
		}
		return fmt.Errorf("%d tables do not match the expected schema", len(issues))
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&migrateFlag, "migrate", false, "Create missing tables and columns before checking")
	RootCmd.AddCommand(schemaCmd)
}
