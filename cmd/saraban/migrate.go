package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"saraban/internal/config"
	"saraban/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the server database schema",
	Long: `Apply or roll back the embedded schema migrations. The DSN comes from
--dsn or from the server configuration (CONFIG_ENV, config/*.yaml, DB_* variables).`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(cmd)
		if err != nil {
			return err
		}
		if err := db.RunMigrations(dsn); err != nil {
			return err
		}
		return printMigrationStatus(dsn)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(cmd)
		if err != nil {
			return err
		}
		if err := db.RollbackOne(dsn); err != nil {
			return err
		}
		return printMigrationStatus(dsn)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(cmd)
		if err != nil {
			return err
		}
		return printMigrationStatus(dsn)
	},
}

func resolveDSN(cmd *cobra.Command) (string, error) {
	if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
		return dsn, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load server config: %w", err)
	}
	return cfg.DB.DSN(), nil
}

func printMigrationStatus(dsn string) error {
	status, err := db.GetMigrationStatus(dsn)
	if err != nil {
		return err
	}
	fmt.Printf("Schema version: %d (latest %d)\n", status.CurrentVersion, status.LatestVersion)
	if status.Dirty {
		fmt.Println("Warning: the database is marked dirty; a migration failed halfway.")
	}
	if status.Pending {
		fmt.Println("Pending migrations: run 'saraban migrate up'.")
	}
	return nil
}

func init() {
	migrateCmd.PersistentFlags().String("dsn", "", "PostgreSQL DSN")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
