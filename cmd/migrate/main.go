package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bookhub/internal/app"
	"bookhub/internal/logger"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, reset, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), *command, *name, log); err != nil {
		log.Fatal("migration failed", zap.String("command", *command), zap.Error(err))
	}
}

func run(ctx context.Context, command, name string, log *zap.Logger) error {
	dir := migrationsDir()

	if command == "create" {
		if name == "" {
			return fmt.Errorf("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return err
		}
		log.Info("migration created", zap.String("name", name), zap.String("dir", dir))
		return nil
	}

	dsn := databaseDSN()
	pool, err := app.OpenDB(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return err
		}
		log.Info("migrations applied", zap.String("dir", dir))
	case "down":
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return err
		}
		log.Info("migration rolled back", zap.String("dir", dir))
	case "reset":
		if err := goose.ResetContext(ctx, db, dir); err != nil {
			return err
		}
		log.Info("all migrations rolled back", zap.String("dir", dir))
	case "status":
		return goose.StatusContext(ctx, db, dir)
	case "version":
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return err
		}
		log.Info("database version", zap.Int64("version", v), zap.String("dsn", app.RedactDSN(dsn)))
	default:
		return fmt.Errorf("unknown command %q; use up, down, status, version, reset, create", command)
	}
	return nil
}
