package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/behavior-lab/runner/internal/hardware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardwarePorts(t *testing.T) {
	s, _ := newTestServer(t)
	createBox(t, s, "CR1", "/dev/ttyACM0")
	createBox(t, s, "CR2", "/dev/ttyACM1")
	s.lister = fakeLister{ports: []hardware.Port{
		{Path: "/dev/ttyACM0", FriendlyName: hardware.FriendlyName("/dev/ttyACM0"), IsUSB: true},
		{Path: "/dev/ttyUSB0", FriendlyName: hardware.FriendlyName("/dev/ttyUSB0")},
	}}

	rec := do(t, s, http.MethodGet, "/api/hardware/ports", nil)
	requireStatus(t, rec, http.StatusOK)
	audit := decode[hardware.Audit](t, rec)
	require.Len(t, audit.Boxes, 2)
	assert.True(t, audit.Boxes[0].Present)
	assert.False(t, audit.Boxes[1].Present)
	require.Len(t, audit.Unassigned, 1)
	assert.Equal(t, "/dev/ttyUSB0", audit.Unassigned[0].Path)

	s.lister = fakeLister{err: errors.New("permission denied")}
	requireStatus(t, do(t, s, http.MethodGet, "/api/hardware/ports", nil), http.StatusInternalServerError)
	requireStatus(t, do(t, s, http.MethodPost, "/api/hardware/ports", nil), http.StatusMethodNotAllowed)
}
