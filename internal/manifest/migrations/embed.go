// Package migrations embeds the manifest schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
