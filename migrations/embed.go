// Package migrations embeds the SQL schema so the server runs standalone
// without external migration files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
