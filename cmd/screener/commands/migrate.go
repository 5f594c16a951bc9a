package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/creditgate/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the screener schema",
	Long: `Applies the idempotent schema statements (schema "screener") and lists
the resulting tables. Every other command also migrates on startup.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	health, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if !health.SchemaReady {
		return fmt.Errorf("schema not ready after migration")
	}

	PrintSection("SCHEMA")
	for _, t := range database.Tables() {
		fmt.Printf("  ✓ %s\n", t)
	}
	PrintSuccess("Schema up to date")
	return nil
}

// openDB loads config, connects and migrates
func openDB(ctx context.Context) (*database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
