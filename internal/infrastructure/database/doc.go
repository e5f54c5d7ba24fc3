// Package database provides the SQLite store behind the retained-topic
// journal.
//
// The database runs in WAL mode with a single connection, which matches
// SQLite's single-writer model. Schema changes are versioned migrations
// supplied as an fs.FS (see the migrations package at the module root):
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// The database file is created with 0600 permissions.
package database
