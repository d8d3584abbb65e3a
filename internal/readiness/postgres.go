package readiness

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresCheck pings a Postgres server.
type PostgresCheck struct {
	name    string
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresCheck prepares a connection pool for dsn. No connection is made
// until the first Check.
func NewPostgresCheck(name, dsn string, timeout time.Duration) (*PostgresCheck, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(time.Minute)

	return &PostgresCheck{name: name, db: db, timeout: timeout}, nil
}

func (p *PostgresCheck) Name() string { return p.name }

func (p *PostgresCheck) Check(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.db.PingContext(ctx)
}

func (p *PostgresCheck) Close() error {
	return p.db.Close()
}
