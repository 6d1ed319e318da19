package api

import (
	"net/http"

	"github.com/behavior-lab/runner/internal/hardware"
	"github.com/behavior-lab/runner/internal/httputil"
	"github.com/behavior-lab/runner/internal/monitoring"
)

// handleHardwarePorts reports which boxes have their serial port attached.
func (s *Server) handleHardwarePorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	audit, err := hardware.Run(s.db, s.lister)
	if err != nil {
		monitoring.Logf("failed to audit serial ports: %v", err)
		httputil.InternalServerError(w, "failed to audit serial ports")
		return
	}
	httputil.WriteJSONOK(w, audit)
}
