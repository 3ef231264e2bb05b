// Package history keeps a ledger of pipeline runs in SQLite.
//
// Each run receives a UUID when it begins and is updated once with its final
// status, output location, media durations, mux decision, and the browser
// step report. The database carries a schema_version row; a mismatch is
// reported as ErrSchemaMismatch rather than migrated in place.
package history
