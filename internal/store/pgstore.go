package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/defigods/futures-indexer/internal/entity"
)

// PGStore persists entities in a single Postgres table
// entities(entity_type, key, data jsonb). Monetary fields serialize through
// the entities' JSON encoding; big.Int values round-trip as JSON numbers
// with full precision.
type PGStore struct {
	db  *sql.DB
	log zerolog.Logger

	upsertDur func(seconds float64) // optional metrics hook
}

func NewPGStore(db *sql.DB, log zerolog.Logger) *PGStore {
	return &PGStore{db: db, log: log}
}

// SetUpsertObserver installs a duration observer for upserts, used to feed
// the Prometheus histogram without coupling this package to metrics.
func (s *PGStore) SetUpsertObserver(obs func(seconds float64)) {
	s.upsertDur = obs
}

func (s *PGStore) Load(ctx context.Context, typ entity.Type, key string) (entity.Entity, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE entity_type = $1 AND key = $2`,
		string(typ), key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s %s: %w", typ, key, err)
	}

	e, ok := entity.New(typ)
	if !ok {
		return nil, false, fmt.Errorf("unknown entity type %q", typ)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, false, fmt.Errorf("decode %s %s: %w", typ, key, err)
	}
	return e, true, nil
}

const upsertSQL = `INSERT INTO entities (entity_type, key, data, updated_at)
	 VALUES ($1, $2, $3, now())
	 ON CONFLICT (entity_type, key)
	 DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

const deleteSQL = `DELETE FROM entities WHERE entity_type = $1 AND key = $2`

func (s *PGStore) Upsert(ctx context.Context, e entity.Entity) error {
	start := time.Now()

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.EntityType(), e.Key(), err)
	}

	_, err = s.db.ExecContext(ctx, upsertSQL, string(e.EntityType()), e.Key(), raw)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", e.EntityType(), e.Key(), err)
	}

	if s.upsertDur != nil {
		s.upsertDur(time.Since(start).Seconds())
	}
	return nil
}

// Apply commits one event's write set in a single transaction so a mid-batch
// failure rolls every row back.
func (s *PGStore) Apply(ctx context.Context, upserts []entity.Entity, deletes []Ref) error {
	if len(upserts) == 0 && len(deletes) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback()

	for _, e := range upserts {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", e.EntityType(), e.Key(), err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, string(e.EntityType()), e.Key(), raw); err != nil {
			return fmt.Errorf("upsert %s %s: %w", e.EntityType(), e.Key(), err)
		}
	}
	for _, r := range deletes {
		if _, err := tx.ExecContext(ctx, deleteSQL, string(r.Type), r.Key); err != nil {
			return fmt.Errorf("delete %s %s: %w", r.Type, r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	if s.upsertDur != nil {
		s.upsertDur(time.Since(start).Seconds())
	}
	return nil
}

func (s *PGStore) ListKeys(ctx context.Context, typ entity.Type) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM entities WHERE entity_type = $1 ORDER BY key`,
		string(typ),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", typ, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", typ, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, typ entity.Type, key string) error {
	_, err := s.db.ExecContext(ctx, deleteSQL, string(typ), key)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", typ, key, err)
	}
	return nil
}
