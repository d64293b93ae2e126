// Package migrations holds the Postgres schema, applied with bun/migrate.
package migrations

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the ordered set of schema changes. Each file registers itself
// and bun derives the migration name from the file name.
var Migrations = migrate.NewMigrations()
