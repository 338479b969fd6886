// Package migrations holds the SQLite schema of the geonotify agent store:
// last known location, session and push token.
package migrations

import "embed"

// Files are the versioned up/down migrations applied by database.ApplyMigrations.
//
//go:embed *.sql
var Files embed.FS
