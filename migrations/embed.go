// Package migrations embeds the postgres schema migrations so the server
// can apply them at startup without a migrations directory on disk.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql pairs
//
//go:embed *.sql
var FS embed.FS
