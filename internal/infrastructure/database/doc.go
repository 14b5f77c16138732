// Package database provides the SQLite store behind the connection journal.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying forward-only schema migrations from an fs.FS
//   - Health checks for the /healthz endpoint
//
// A path of ":memory:" opens a private in-memory database, which tests use.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named NNNN_description.sql and applied in lexical
// order, each in its own transaction, with the applied set recorded in
// schema_migrations.
package database
