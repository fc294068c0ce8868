package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
)

const (
	pgContractName = "contract"
	pgDayName      = "day"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS operator_records (
    name       TEXT PRIMARY KEY,
    day_key    TEXT NOT NULL,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres keeps each named record as a JSONB row, overwritten wholesale
// on save. Useful when the operator runs the engine on more than one
// machine against the same journal.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects with the given DSN and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) LoadContract(ctx context.Context) (*guard.CommitmentContract, error) {
	var c guard.CommitmentContract
	ok, err := p.load(ctx, pgContractName, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) SaveContract(ctx context.Context, c *guard.CommitmentContract) error {
	return p.save(ctx, pgContractName, c.DayKey, c)
}

func (p *Postgres) LoadDay(ctx context.Context) (*ledger.DayState, error) {
	var d ledger.DayState
	ok, err := p.load(ctx, pgDayName, &d)
	if err != nil || !ok {
		return nil, err
	}
	return &d, nil
}

func (p *Postgres) SaveDay(ctx context.Context, d *ledger.DayState) error {
	return p.save(ctx, pgDayName, d.DayKey, d)
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) load(ctx context.Context, name string, dst any) (bool, error) {
	var payload []byte
	err := p.db.GetContext(ctx, &payload,
		`SELECT payload FROM operator_records WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres load %s: %w", name, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (p *Postgres) save(ctx context.Context, name, dayKey string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO operator_records (name, day_key, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET day_key = EXCLUDED.day_key, payload = EXCLUDED.payload, updated_at = now()`,
		name, dayKey, payload)
	if err != nil {
		return fmt.Errorf("postgres save %s: %w", name, err)
	}
	return nil
}
