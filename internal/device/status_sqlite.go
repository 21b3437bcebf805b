package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is the stored timestamp format (UTC, millisecond precision).
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteStatusRepository stores sensor status in the device_status table.
type SQLiteStatusRepository struct {
	db *sql.DB
}

// NewSQLiteStatusRepository creates a new SQLite status repository.
//
// Parameters:
//   - db: Open SQLite connection with the device_status migration applied
//
// Returns:
//   - *SQLiteStatusRepository: Repository instance ready for use
func NewSQLiteStatusRepository(db *sql.DB) *SQLiteStatusRepository {
	return &SQLiteStatusRepository{db: db}
}

// RecordSeen marks a reading as published for a sensor.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - address: Sensor radio address
//   - name: Configured display name
//   - at: Time the reading was published
//
// Returns:
//   - error: ErrInvalidAddress, or the underlying database error
func (r *SQLiteStatusRepository) RecordSeen(ctx context.Context, address, name string, at time.Time) error {
	key, err := normaliseAddress(address)
	if err != nil {
		return err
	}
	ts := formatTime(at)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO device_status (address, name, last_seen, readings, updated_at)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(address) DO UPDATE SET
		     name = excluded.name,
		     last_seen = excluded.last_seen,
		     readings = device_status.readings + 1,
		     updated_at = excluded.updated_at`,
		key, name, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("recording device seen: %w", err)
	}
	return nil
}

// RecordError stores the most recent error for a sensor.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - address: Sensor radio address
//   - name: Configured display name
//   - cause: The error to record
//   - at: Time the error occurred
//
// Returns:
//   - error: ErrInvalidAddress, or the underlying database error
func (r *SQLiteStatusRepository) RecordError(ctx context.Context, address, name string, cause error, at time.Time) error {
	key, err := normaliseAddress(address)
	if err != nil {
		return err
	}
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	ts := formatTime(at)

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO device_status (address, name, last_error, last_error_at, errors, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT(address) DO UPDATE SET
		     name = excluded.name,
		     last_error = excluded.last_error,
		     last_error_at = excluded.last_error_at,
		     errors = device_status.errors + 1,
		     updated_at = excluded.updated_at`,
		key, name, msg, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("recording device error: %w", err)
	}
	return nil
}

// Get returns the status for one sensor.
//
// Returns:
//   - Status: The stored status
//   - error: ErrDeviceNotFound if the sensor has no row
func (r *SQLiteStatusRepository) Get(ctx context.Context, address string) (Status, error) {
	key, err := normaliseAddress(address)
	if err != nil {
		return Status{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT address, name, last_seen, last_error, last_error_at, readings, errors, updated_at
		 FROM device_status WHERE address = ?`, key)

	s, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Status{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
	}
	if err != nil {
		return Status{}, err
	}
	return s, nil
}

// List returns every stored status ordered by address.
func (r *SQLiteStatusRepository) List(ctx context.Context) ([]Status, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT address, name, last_seen, last_error, last_error_at, readings, errors, updated_at
		 FROM device_status ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("querying device status: %w", err)
	}
	defer rows.Close()

	var out []Status
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device status: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (Status, error) {
	var (
		s                              Status
		lastSeen, lastErr, lastErrorAt sql.NullString
		updatedAt                      string
	)
	if err := row.Scan(&s.Address, &s.Name, &lastSeen, &lastErr, &lastErrorAt, &s.Readings, &s.Errors, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Status{}, err
		}
		return Status{}, fmt.Errorf("scanning device status: %w", err)
	}

	s.LastSeen = parseNullTime(lastSeen)
	s.LastError = lastErr.String
	s.LastErrorAt = parseNullTime(lastErrorAt)
	if t, err := time.Parse(timeLayout, updatedAt); err == nil {
		s.UpdatedAt = t
	}
	return s, nil
}

func normaliseAddress(address string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(address))
	if key == "" {
		return "", ErrInvalidAddress
	}
	return key, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}
