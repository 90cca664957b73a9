// Package migrations embeds the SQL schema for the ticket store.
package migrations

import "embed"

// FS holds the numbered up/down migrations.
//
//go:embed *.sql
var FS embed.FS
