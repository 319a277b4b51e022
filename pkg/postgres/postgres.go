// Package postgres opens the branch-level sales database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ConnectionParams holds the lib/pq DSN and pool sizing.
type ConnectionParams struct {
	DSN          string
	MaxOpenConns int
	PingTimeout  time.Duration
}

// Open connects and pings.
func Open(ctx context.Context, p ConnectionParams) (*sql.DB, error) {
	if p.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
		db.SetMaxIdleConns(p.MaxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if p.PingTimeout <= 0 {
		p.PingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, p.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}
