package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PgSnapshotStore keeps the snapshot in a single-row Postgres table,
// upserted wholesale on every write. The lib/pq driver must be
// registered by the importing binary.
type PgSnapshotStore struct {
	db *sql.DB
}

const (
	createStateTable = `CREATE TABLE IF NOT EXISTS asaph_state (
		id smallint PRIMARY KEY CHECK (id = 1),
		data jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`
	selectState = `SELECT data FROM asaph_state WHERE id = 1`
	upsertState = `INSERT INTO asaph_state (id, data, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
)

func NewPgSnapshotStore(dsn string) (*PgSnapshotStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(createStateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	return &PgSnapshotStore{db: db}, nil
}

func (p *PgSnapshotStore) Load() (*Snapshot, error) {
	var data []byte
	if err := p.db.QueryRow(selectState).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &snap, nil
}

func (p *PgSnapshotStore) Save(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if _, err := p.db.Exec(upsertState, data); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (p *PgSnapshotStore) Close() error {
	return p.db.Close()
}
