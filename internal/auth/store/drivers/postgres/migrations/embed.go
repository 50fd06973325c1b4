// Package migrations holds the Postgres schema, applied with golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
