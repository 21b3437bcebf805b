package device

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hygrobridge/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-hygrobridge/migrations"
)

// setupStatusRepo opens a temporary database with the embedded migrations applied.
func setupStatusRepo(t *testing.T) *SQLiteStatusRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "status.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteStatusRepository(db.DB)
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRecordSeen(t *testing.T) {
	repo := setupStatusRepo(t)
	ctx := context.Background()

	if err := repo.RecordSeen(ctx, "a4:c1:38:00:00:01", "Sensor1", t0); err != nil {
		t.Fatalf("RecordSeen() error = %v", err)
	}
	if err := repo.RecordSeen(ctx, "A4:C1:38:00:00:01", "Sensor1", t0.Add(11*time.Second)); err != nil {
		t.Fatalf("RecordSeen() error = %v", err)
	}

	s, err := repo.Get(ctx, "A4:c1:38:00:00:01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.Address != "A4:C1:38:00:00:01" || s.Name != "Sensor1" {
		t.Errorf("identity = %q %q", s.Address, s.Name)
	}
	if s.Readings != 2 {
		t.Errorf("Readings = %d, want 2", s.Readings)
	}
	if s.LastSeen == nil || !s.LastSeen.Equal(t0.Add(11*time.Second)) {
		t.Errorf("LastSeen = %v, want %v", s.LastSeen, t0.Add(11*time.Second))
	}
	if s.LastErrorAt != nil || s.LastError != "" {
		t.Errorf("error fields set without errors: %+v", s)
	}
}

func TestRecordError(t *testing.T) {
	repo := setupStatusRepo(t)
	ctx := context.Background()

	if err := repo.RecordSeen(ctx, "A4:C1:38:00:00:02", "Sensor2", t0); err != nil {
		t.Fatalf("RecordSeen() error = %v", err)
	}
	cause := errors.New("scanner: encrypted advertisement")
	if err := repo.RecordError(ctx, "A4:C1:38:00:00:02", "Sensor2", cause, t0.Add(time.Minute)); err != nil {
		t.Fatalf("RecordError() error = %v", err)
	}

	s, err := repo.Get(ctx, "A4:C1:38:00:00:02")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.LastError != cause.Error() || s.Errors != 1 {
		t.Errorf("error fields = %q / %d", s.LastError, s.Errors)
	}
	if s.Readings != 1 || s.LastSeen == nil {
		t.Errorf("seen fields lost after error: %+v", s)
	}
	if !s.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", s.UpdatedAt)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := setupStatusRepo(t)

	_, err := repo.Get(context.Background(), "00:00:00:00:00:00")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestInvalidAddress(t *testing.T) {
	repo := setupStatusRepo(t)
	ctx := context.Background()

	if err := repo.RecordSeen(ctx, " ", "x", t0); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("RecordSeen() error = %v, want ErrInvalidAddress", err)
	}
	if err := repo.RecordError(ctx, "", "x", errors.New("e"), t0); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("RecordError() error = %v, want ErrInvalidAddress", err)
	}
	if _, err := repo.Get(ctx, ""); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Get() error = %v, want ErrInvalidAddress", err)
	}
}

func TestList(t *testing.T) {
	repo := setupStatusRepo(t)
	ctx := context.Background()

	for _, addr := range []string{"BB:00:00:00:00:02", "AA:00:00:00:00:01"} {
		if err := repo.RecordSeen(ctx, addr, addr, t0); err != nil {
			t.Fatalf("RecordSeen() error = %v", err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].Address != "AA:00:00:00:00:01" {
		t.Errorf("List() = %+v", all)
	}
}

func TestStatusStale(t *testing.T) {
	seen := t0
	tests := []struct {
		name string
		s    Status
		now  time.Time
		want bool
	}{
		{"never seen", Status{}, t0, true},
		{"fresh", Status{LastSeen: &seen}, t0.Add(time.Minute), false},
		{"stale", Status{LastSeen: &seen}, t0.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Stale(tt.now, 10*time.Minute); got != tt.want {
				t.Errorf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}
