package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/flemzord/sbot/internal/memory"
)

// Persister stores memory snapshots as JSON-encoded values. Numbers are
// restored as float64, strings as string, objects as map[string]any.
type Persister struct {
	db *sql.DB
}

// Load reads every persisted entry ordered by scope then key.
func (p *Persister) Load(ctx context.Context) ([]memory.Entry, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT scope, key, value FROM memory ORDER BY scope, key")
	if err != nil {
		return nil, fmt.Errorf("sqlite: load memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []memory.Entry
	for rows.Next() {
		var scopeStr, key, valueJSON string
		if err := rows.Scan(&scopeStr, &key, &valueJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}

		scope, err := memory.ParseScope(scopeStr)
		if err != nil {
			return nil, fmt.Errorf("sqlite: entry %q: %w", key, err)
		}

		var value any
		if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal %s/%s: %w", scopeStr, key, err)
		}

		entries = append(entries, memory.Entry{Scope: scope, Key: key, Value: value})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan memory rows: %w", err)
	}

	return entries, nil
}

// Save replaces the persisted snapshot with entries in one transaction.
func (p *Persister) Save(ctx context.Context, entries []memory.Entry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM memory"); err != nil {
		return fmt.Errorf("sqlite: clear memory: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO memory (scope, key, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		valueJSON, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("sqlite: marshal %s/%s: %w", e.Scope, e.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, e.Scope.String(), e.Key, string(valueJSON)); err != nil {
			return fmt.Errorf("sqlite: insert %s/%s: %w", e.Scope, e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
