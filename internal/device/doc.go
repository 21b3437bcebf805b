// Package device keeps the last known status of each configured sensor.
//
// A status row records when a sensor's reading was last published, how many
// readings and errors it has produced, and the most recent error. Rows are
// keyed by the sensor's radio address, compared case-insensitively.
//
// The store is written by the bridge's event loop and read by operators
// (for example with the sqlite3 shell) to spot sensors that have gone
// quiet or keep failing.
//
// Usage:
//
//	repo := device.NewSQLiteStatusRepository(db.DB)
//	if err := repo.RecordSeen(ctx, "A4:C1:38:12:34:56", "Living room", time.Now()); err != nil {
//	    return err
//	}
package device
