package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SubmissionsKey is the namespace of the local submission log.
const SubmissionsKey = "jersey:submissions"

// Append adds entry to the end of the JSON array stored under key and
// returns the new array length. A missing key starts a new array.
//
// The whole array is read, extended and written back in one transaction.
// A stored value that is not a JSON array is an error; it is never
// overwritten.
func (s *Store) Append(ctx context.Context, key string, entry any) (int, error) {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("append %s: encode entry: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append %s: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	entries, err := readArray(ctx, tx, key)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", key, err)
	}
	entries = append(entries, encoded)

	value, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("append %s: encode array: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(value))
	if err != nil {
		return 0, fmt.Errorf("append %s: write: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append %s: commit: %w", key, err)
	}

	return len(entries), nil
}

// Entries returns the elements of the JSON array stored under key, in
// append order.
//
// Returns an empty slice (not nil) if the key does not exist.
func (s *Store) Entries(ctx context.Context, key string) ([]json.RawMessage, error) {
	entries, err := readArray(ctx, s.db, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return entries, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readArray(ctx context.Context, q querier, key string) ([]json.RawMessage, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query value: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		return nil, fmt.Errorf("stored value is not a JSON array: %w", err)
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return entries, nil
}
