// Package database handles database connections and schema inspection.
//
// It wraps GORM to open either MySQL (production) or SQLite (local runs and
// tests) from the application's configuration.
//
// # Connect
//
// Connect opens the configured driver, applies pool settings and pings the
// server before returning.
//
// # Schema Inspection
//
// GetTableColumns and CheckSchema compare the live schema with the tables the
// feature packages expect. The schema command uses them to report drift
// before a poller run.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	issues, err := database.CheckSchema(db, models.ExpectedSchema())
package database
