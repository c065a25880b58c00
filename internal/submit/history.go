package submit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/jersey/internal/form"
	"github.com/roach88/jersey/internal/store"
)

// EntryReader reads the raw entries of a local log key.
type EntryReader interface {
	Entries(ctx context.Context, key string) ([]json.RawMessage, error)
}

// History returns the local submission log, oldest first.
func History(ctx context.Context, r EntryReader) ([]form.LogEntry, error) {
	raw, err := r.Entries(ctx, store.SubmissionsKey)
	if err != nil {
		return nil, err
	}

	entries := make([]form.LogEntry, 0, len(raw))
	for i, msg := range raw {
		var e form.LogEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("decode submission %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
