package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"florashop-be/internal/migrate"

	"github.com/joho/godotenv"
)

// migrator is the slice of internal/migrate the command drives.
type migrator struct {
	apply    func(ctx context.Context, dbURL string) error
	rollback func(ctx context.Context, dbURL string) error
	version  func(ctx context.Context, dbURL string) (uint, bool, error)
}

var defaultMigrator = migrator{
	apply:    migrate.Apply,
	rollback: migrate.Rollback,
	version:  migrate.Version,
}

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up, down or version")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL not set in environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, defaultMigrator, *mode, dbURL, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, m migrator, mode, dbURL string, out io.Writer) error {
	switch mode {
	case "up":
		if err := m.apply(ctx, dbURL); err != nil {
			return err
		}
		fmt.Fprintln(out, "✅ All new migrations applied successfully.")
	case "down":
		if err := m.rollback(ctx, dbURL); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintln(out, "✅ Rollback successful.")
	case "version":
		v, dirty, err := m.version(ctx, dbURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version %d (dirty=%t)\n", v, dirty)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'version')", mode)
	}
	return nil
}
