// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// FS holds the NNN_name.sql files in version order
//
//go:embed *.sql
var FS embed.FS
