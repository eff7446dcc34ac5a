package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/newsscrape/engine/internal/config"
)

// Connect opens the sqlx handle used by the repositories in this package.
// Mirrors the teacher's cmd/scraper/main.go connection setup, generalized
// to read pool sizing from config instead of being hardcoded.
func Connect(cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DatabasePoolMax)
	db.SetMaxIdleConns(cfg.DatabasePoolMin)
	db.SetConnMaxIdleTime(cfg.DatabasePoolIdleTimeout)
	return db, nil
}

// ConnectPool opens the pgx pool River requires, with the same size limits
// as the sqlx handle. The two pools are independent, so together they can
// hold up to twice DatabasePoolMax connections.
func ConnectPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DatabasePoolMax)
	poolCfg.MinConns = int32(cfg.DatabasePoolMin)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}
