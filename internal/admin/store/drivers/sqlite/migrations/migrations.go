// Package migrations embeds the SQLite schema and seed data.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
