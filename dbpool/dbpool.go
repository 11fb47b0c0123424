package dbpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// Init creates the shared connection pool and verifies connectivity with a
// short ping so a bad DB_URL fails at startup instead of on first request.
func Init(dbUrl string) error {
	var err error
	Pool, err = pgxpool.New(
		context.Background(),
		dbUrl,
	)
	if err != nil {
		return fmt.Errorf("error creating database connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Pool.Ping(ctx); err != nil {
		return fmt.Errorf("error pinging database: %w", err)
	}

	return nil
}

// Close releases the shared pool.
func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
