package database_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wonny/creditgate/pkg/config"
	"github.com/wonny/creditgate/pkg/database"
)

// Example demonstrates connecting and preparing the schema
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}

	fmt.Printf("Database is healthy: %v (schema ready: %v)\n", status.Healthy, status.SchemaReady)
	fmt.Printf("Max connections: %d\n", status.Stats.MaxConns)
}
