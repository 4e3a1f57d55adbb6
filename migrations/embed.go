// Package migrations bundles the PostgreSQL schema applied by `tailrisk migrate`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
