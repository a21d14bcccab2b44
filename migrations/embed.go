// Package migrations embeds the SQL schema files in apply order.
package migrations

import "embed"

// Files holds every NNNN_name.sql migration.
//
//go:embed *.sql
var Files embed.FS
