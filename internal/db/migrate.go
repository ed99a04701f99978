package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dir = "migrations"

func prepare() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// RunMigrations applies all pending migrations embedded in the binary.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// RollbackMigrations rolls back the last steps migrations.
func RollbackMigrations(ctx context.Context, db *sql.DB, steps int) error {
	if err := prepare(); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return fmt.Errorf("rollback migration: %w", err)
		}
	}
	return nil
}
