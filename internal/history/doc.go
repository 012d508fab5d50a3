// Package history records one row per pipeline run in a SQLite database.
//
// The ledger backs the `hardsub history` command. It stores outcome, error
// class, cache behaviour, and artifact paths; content fingerprints are not
// persisted. Writes retry on SQLITE_BUSY so concurrent runs on one host can
// share the file.
package history
