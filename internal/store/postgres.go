package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"grower/internal/roster"
)

// Postgres keeps the same key/value layout in a Postgres table, for
// installations that want a hosted durable copy.
type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a Postgres connection with sane defaults and makes sure
// the table exists.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS grower_kv (
			name       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating grower_kv")
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM grower_kv WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading %s", name)
	}
	return value, true, nil
}

func (p *Postgres) set(ctx context.Context, name, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO grower_kv (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, name, value)
	return errors.Wrapf(err, "writing %s", name)
}

func (p *Postgres) LoadRoster(ctx context.Context) ([]roster.Student, error) {
	raw, ok, err := p.get(ctx, RosterKey)
	if err != nil || !ok {
		return nil, err
	}
	return decodeRoster(raw)
}

func (p *Postgres) SaveRoster(ctx context.Context, list []roster.Student) error {
	raw, err := encodeRoster(list)
	if err != nil {
		return err
	}
	return p.set(ctx, RosterKey, raw)
}

func (p *Postgres) LoadExpiry(ctx context.Context) (string, error) {
	v, _, err := p.get(ctx, ExpiryKey)
	return v, err
}

func (p *Postgres) SaveExpiry(ctx context.Context, date string) error {
	return p.set(ctx, ExpiryKey, date)
}

func (p *Postgres) Healthy(ctx context.Context) bool {
	return p.db.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
