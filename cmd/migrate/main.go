package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/config"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/database"
	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migration command (up/down/status/version/reset)")
	flag.Parse()

	logger := pkglogger.New(os.Stderr, os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadDatabase()
	if err != nil {
		fatal(logger, "failed to load configuration", err)
	}

	db, err := sql.Open("postgres", cfg.URL())
	if err != nil {
		fatal(logger, "failed to open database", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		fatal(logger, "failed to create migrator", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch *command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			fatal(logger, "failed to run migrations", err)
		}
		logger.Info("migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			fatal(logger, "failed to roll back migration", err)
		}
		logger.Info("migration rolled back")

	case "status":
		if err := migrator.Status(ctx); err != nil {
			fatal(logger, "failed to get migration status", err)
		}

	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			fatal(logger, "failed to get migration version", err)
		}
		logger.Info("current migration version", slog.Int64("version", version))

	case "reset":
		if err := migrator.Reset(ctx); err != nil {
			fatal(logger, "failed to reset migrations", err)
		}
		logger.Info("migrations reset")

	default:
		logger.Error("unknown command", slog.String("command", *command))
		os.Exit(2)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
