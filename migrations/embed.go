// Package migrations embeds the schema migrations applied by cmd/migrate and
// the api-server when MIGRATE_ON_START is set.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
