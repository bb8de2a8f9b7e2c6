// Package database provides SQLite connectivity for the sensor gateway.
//
// This package manages:
//   - Database connection with WAL mode so metadata lookups do not block on writes
//   - Schema migrations (embedded, additive-only)
//   - Connection pool sizing; the pool is the gateway's only backpressure
//
// The sensor metadata schema (devices, attributes, converters, calibrators,
// validators) and the credential tables (users, user_tokens) live in the
// embedded migrations under migrations/.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
