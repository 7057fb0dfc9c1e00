package usage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps per-agent totals and an append-only call log.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the usage database at path and runs
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create usage db directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	// One writer at a time; the tracker already serializes Save calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping usage db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS agent_usage (
    agent_name TEXT PRIMARY KEY,
    api_calls INTEGER NOT NULL DEFAULT 0,
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_calls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    agent_name TEXT NOT NULL,
    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_calls_agent ON usage_calls(agent_name);
`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the stored per-agent totals.
func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_name, api_calls, input_tokens, output_tokens FROM agent_usage ORDER BY agent_name`)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.AgentName, &r.APICalls, &r.InputTokens, &r.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		r.TotalTokens = r.InputTokens + r.OutputTokens
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save appends the call to the log and upserts the agent's new totals.
func (s *SQLiteStore) Save(ctx context.Context, call Call, total Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO usage_calls (agent_name, input_tokens, output_tokens, created_at) VALUES (?, ?, ?, ?)`,
		call.AgentName, call.InputTokens, call.OutputTokens, call.At.Unix(),
	); err != nil {
		return fmt.Errorf("insert call: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO agent_usage (agent_name, api_calls, input_tokens, output_tokens, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(agent_name) DO UPDATE SET
    api_calls = excluded.api_calls,
    input_tokens = excluded.input_tokens,
    output_tokens = excluded.output_tokens,
    updated_at = excluded.updated_at`,
		total.AgentName, total.APICalls, total.InputTokens, total.OutputTokens, call.At.Unix(),
	); err != nil {
		return fmt.Errorf("upsert totals: %w", err)
	}

	return tx.Commit()
}

// CallCount returns the number of logged calls, optionally for one agent.
func (s *SQLiteStore) CallCount(ctx context.Context, agent string) (int64, error) {
	var n int64
	var err error
	if agent == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_calls`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_calls WHERE agent_name = ?`, agent).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}
