// Command dbcheck verifies connectivity to the configured Postgres (and
// Redis, when REDIS_URL is set) and applies pending migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/medcoding/api/internal/config"
	"github.com/medcoding/api/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dbcheck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Println("postgres: connection successful")

	var result int
	if err := db.Pool().QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("querying postgres: %w", err)
	}
	fmt.Printf("postgres: query result %d\n", result)

	applied, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	fmt.Printf("postgres: migrations applied=%t\n", applied)

	var logged int
	if err := db.Pool().QueryRow(ctx, "SELECT count(*) FROM prediction_logs").Scan(&logged); err != nil {
		return fmt.Errorf("reading prediction_logs: %w", err)
	}
	fmt.Printf("postgres: %d prediction log rows\n", logged)

	if cfg.RedisURL == "" {
		fmt.Println("redis: not configured")
		return nil
	}
	rdb, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	fmt.Println("redis: connection successful")
	return nil
}
