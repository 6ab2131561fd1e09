package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the question bank and standings schema, applied by `maipocket-quiz migrate`.
var Migrations = migrate.NewMigrations()
