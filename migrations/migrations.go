// Package migrations embeds the SQL schema applied by `docs-server migrate up`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
