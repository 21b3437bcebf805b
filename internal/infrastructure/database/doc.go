// Package database opens the bridge's SQLite database and applies its
// embedded schema migrations.
//
// The database is optional. When enabled it backs the device status store
// (last reading and last error per sensor) so operators can see which
// sensors have gone quiet. Readings themselves are never stored.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
