// Package migrations embeds the SQL schema for the retained-topic journal
// and the command audit log.
package migrations

import "embed"

// FS holds every migration file at its root.
//
//go:embed *.sql
var FS embed.FS
