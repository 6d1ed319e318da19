package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/behavior-lab/runner/internal/config"
	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/hardware"
	"github.com/behavior-lab/runner/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	monitoring.SetLogger(nil)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "runner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "runner dev")
}

func TestMigrateCmd(t *testing.T) {
	t.Setenv("RUNNER_LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "runner.db")

	out, err := execute(t, "--db", path, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "All migrations applied")

	out, err = execute(t, "--db", path, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is up to date.")

	_, err = execute(t, "--db", path, "migrate", "sideways")
	assert.Error(t, err)
}

func TestUnknownConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "sessions")
	assert.Error(t, err)
}

type fakeLister []hardware.Port

func (f fakeLister) List() ([]hardware.Port, error) { return f, nil }

func TestPrintPorts(t *testing.T) {
	store := newStore(t)
	duration := 40
	require.NoError(t, store.CreateBox(&db.Box{Name: "CR1", LRewardDuration: &duration, SerialPort: "/dev/ttyACM0"}))
	require.NoError(t, store.CreateBox(&db.Box{Name: "CR2", LRewardDuration: &duration, SerialPort: "/dev/ttyACM1"}))
	lister := fakeLister{{Path: "/dev/ttyACM0"}}

	var out bytes.Buffer
	require.NoError(t, printPorts(&out, store, lister, false))
	assert.Contains(t, out.String(), `"box": "CR2"`)

	out.Reset()
	err := printPorts(&out, store, lister, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CR2")
	assert.NotContains(t, err.Error(), "CR1")
}

func TestPrintSessions(t *testing.T) {
	store := newStore(t)
	rotation := 50
	m := &db.Mouse{Name: "KM101", StimulusSet: "ts", StepFirstRotation: &rotation, Scheduler: "Auto", ProtocolName: "TwoChoice", ScriptName: "TwoChoice.py"}
	require.NoError(t, store.CreateMouse(m))
	s := db.NewSession(m, nil, nil, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC))
	s.Logfile, s.AutosketchPath, s.ScriptPath, s.Sandbox = "run.log", "a.ino", "TwoChoice.py", "sandbox"
	s.LeftPerf = db.Float(0.5)
	require.NoError(t, store.CreateSession(s))

	var out bytes.Buffer
	require.NoError(t, printSessions(&out, store, "KM101", 10))
	assert.Contains(t, out.String(), "L perf")
	assert.Contains(t, out.String(), "2020-01-01_120000_KM101")
	assert.Contains(t, out.String(), "50")

	err := printSessions(&out, store, "nobody", 10)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestServe(t *testing.T) {
	store := newStore(t)
	cfg := config.Defaults()
	cfg.ShutdownTimeout = "2s"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := fmt.Sprintf("http://%s", ln.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, store, ln) }()

	resp, err := http.Get(base + "/api/mice")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	_, err = http.Get(base + "/api/mice")
	assert.Error(t, err, "listener is closed after shutdown")
}
