// Package migrations embeds the Postgres schema for the auction store.
package migrations

import "embed"

// FS contains the SQL migrations. Every statement is idempotent.
//
//go:embed *.sql
var FS embed.FS
