package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appmigrations "github.com/wolfman30/careportal/migrations"
	"github.com/wolfman30/careportal/pkg/logging"
)

// Usage:
//
//	migrate            apply every pending migration
//	migrate down <n>   roll back n migrations
//	migrate force <v>  mark version v as applied after a failed run
func main() {
	_ = godotenv.Load()
	logger := logging.New("info").Component("migrate")

	if err := run(os.Args[1:], strings.TrimSpace(os.Getenv("DATABASE_URL")), logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, databaseURL string, logger *logging.Logger) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	cmd, n, err := parseArgs(args)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch cmd {
	case "force":
		if err := m.Force(n); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		logger.Info("forced version", "version", n)
		return nil
	case "down":
		if err := m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("rolled back migrations", "steps", n)
		return nil
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	logger.Info("migrations complete")
	return nil
}

func parseArgs(args []string) (cmd string, n int, err error) {
	if len(args) == 0 || args[0] == "up" {
		return "up", 0, nil
	}
	cmd = args[0]
	if cmd != "force" && cmd != "down" {
		return "", 0, fmt.Errorf("unknown command %q", cmd)
	}
	if len(args) < 2 {
		return "", 0, fmt.Errorf("%s requires a number", cmd)
	}
	n, err = strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid number %q: %w", args[1], err)
	}
	if cmd == "down" && n < 1 {
		return "", 0, fmt.Errorf("down requires a positive step count")
	}
	return cmd, n, nil
}
