package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/behavior-lab/runner/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runner.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func testMouse(name string) *Mouse {
	return &Mouse{
		Name:              name,
		StimulusSet:       "trial_types_4srvpos",
		StepFirstRotation: intPtr(50),
		Scheduler:         "Auto",
		ProtocolName:      "TwoChoice",
		ScriptName:        "TwoChoice.py",
	}
}

func createTestMouse(t *testing.T, db *DB, name string) *Mouse {
	t.Helper()
	m := testMouse(name)
	if err := db.CreateMouse(m); err != nil {
		t.Fatalf("CreateMouse failed: %v", err)
	}
	return m
}

func createTestBox(t *testing.T, db *DB, name string) *Box {
	t.Helper()
	b := &Box{Name: name, LRewardDuration: intPtr(40), SerialPort: "/dev/ttyACM0"}
	if err := db.CreateBox(b); err != nil {
		t.Fatalf("CreateBox failed: %v", err)
	}
	return b
}

func createTestBoard(t *testing.T, db *DB, name string) *Board {
	t.Helper()
	b := &Board{Name: name, HasSideHESensor: boolPtr(true)}
	if err := db.CreateBoard(b); err != nil {
		t.Fatalf("CreateBoard failed: %v", err)
	}
	return b
}

func testSession(m *Mouse, box *Box, start time.Time) *Session {
	s := NewSession(m, box, nil, start)
	s.Logfile = "/home/mouse/logs/" + s.Name + ".log"
	s.AutosketchPath = "/home/mouse/sandbox/Autosketch.ino"
	s.ScriptPath = "/home/mouse/protocols/TwoChoice.py"
	s.Sandbox = "/home/mouse/sandbox"
	return s
}

func createTestSession(t *testing.T, db *DB, m *Mouse, box *Box, start time.Time) *Session {
	t.Helper()
	s := testSession(m, box, start)
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return s
}
