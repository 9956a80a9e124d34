// Package migrations embeds the SQL scripts of the event ledger.
package migrations

import "embed"

//go:embed sqlite/*.sql
var FS embed.FS
