// Package migrations embeds the Postgres schema applied by the migrate command.
package migrations

import "embed"

// FS holds the numbered up/down SQL files.
//
//go:embed *.sql
var FS embed.FS
