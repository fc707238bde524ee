// Package migrations ships the Postgres schema with the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
