// Package store provides SQLite-backed durable storage for the local
// submission log.
//
// The store is a small key/value table. Each key holds a JSON array that
// only ever grows: Append reads the full array, appends one element and
// writes the array back inside a single transaction. Nothing is pruned or
// deduplicated.
//
// Connections are opened with journal_mode=WAL, synchronous=NORMAL and a
// 5 s busy timeout, passed as driver DSN parameters.
//
// The schema version is tracked in PRAGMA user_version. Opening a database
// written by a newer schema fails instead of silently misreading it.
package store
