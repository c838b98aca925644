// Package migrations embeds the SQLite schema for the auction store.
package migrations

import "embed"

// FS contains the SQL migrations applied on open, in file name order.
//
//go:embed *.sql
var FS embed.FS
