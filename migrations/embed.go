// Package migrations embeds the journal's SQL migrations into the binary.
package migrations

import "embed"

// FS holds every NNNN_description.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
