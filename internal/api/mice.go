package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/httputil"
	"github.com/behavior-lab/runner/internal/report"
)

// handleMice handles GET and POST to /api/mice. GET with ?name= looks up a
// single mouse.
func (s *Server) handleMice(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			m, err := s.db.GetMouseByName(name)
			if err != nil {
				writeStoreError(w, err, "fetch mouse")
				return
			}
			httputil.WriteJSONOK(w, m)
			return
		}
		mice, err := s.db.GetAllMice()
		if err != nil {
			writeStoreError(w, err, "fetch mice")
			return
		}
		httputil.WriteJSONOK(w, mice)
	case http.MethodPost:
		var m db.Mouse
		if err := httputil.DecodeJSON(r, &m); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.db.CreateMouse(&m); err != nil {
			writeStoreError(w, err, "create mouse")
			return
		}
		created, err := s.db.GetMouse(m.ID)
		if err != nil {
			writeStoreError(w, err, "fetch mouse")
			return
		}
		httputil.Created(w, created)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleMouseByID handles /api/mice/{id} and its sub-resources.
func (s *Server) handleMouseByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/mice/")
	id, ok := parseID(w, parts, "mouse")
	if !ok {
		return
	}

	if len(parts) > 1 {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		switch parts[1] {
		case "sessions":
			s.handleMouseSessions(w, r, id)
		case "performance":
			s.handleMousePerformance(w, id)
		case "weight.png":
			s.handleMouseWeight(w, id)
		default:
			httputil.NotFound(w, "unknown mouse resource")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := s.db.GetMouse(id)
		if err != nil {
			writeStoreError(w, err, "fetch mouse")
			return
		}
		httputil.WriteJSONOK(w, m)
	case http.MethodPut:
		var m db.Mouse
		if err := httputil.DecodeJSON(r, &m); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		m.ID = id
		if err := s.db.UpdateMouse(&m); err != nil {
			writeStoreError(w, err, "update mouse")
			return
		}
		updated, err := s.db.GetMouse(id)
		if err != nil {
			writeStoreError(w, err, "fetch mouse")
			return
		}
		httputil.WriteJSONOK(w, updated)
	case http.MethodDelete:
		if err := s.db.DeleteMouse(id); err != nil {
			writeStoreError(w, err, "delete mouse")
			return
		}
		httputil.NoContent(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleMouseSessions(w http.ResponseWriter, r *http.Request, id int) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if _, err := s.db.GetMouse(id); err != nil {
		writeStoreError(w, err, "fetch mouse")
		return
	}
	sessions, err := s.db.GetSessionsForMouse(id, limit)
	if err != nil {
		writeStoreError(w, err, "fetch sessions")
		return
	}
	httputil.WriteJSONOK(w, displaySessions(sessions))
}

// mouseSessions loads a mouse and all of its sessions for charting.
func (s *Server) mouseSessions(w http.ResponseWriter, id int) (*db.Mouse, []db.Session, bool) {
	m, err := s.db.GetMouse(id)
	if err != nil {
		writeStoreError(w, err, "fetch mouse")
		return nil, nil, false
	}
	sessions, err := s.db.GetSessionsForMouse(id, 0)
	if err != nil {
		writeStoreError(w, err, "fetch sessions")
		return nil, nil, false
	}
	return m, sessions, true
}

func (s *Server) handleMousePerformance(w http.ResponseWriter, id int) {
	m, sessions, ok := s.mouseSessions(w, id)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.PerformanceChart(&buf, m.Name, sessions); err != nil {
		writeChartError(w, err, "render performance chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleMouseWeight(w http.ResponseWriter, id int) {
	m, sessions, ok := s.mouseSessions(w, id)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WeightPlot(&buf, m.Name, sessions); err != nil {
		writeChartError(w, err, "render weight plot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = buf.WriteTo(w)
}

func writeChartError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, report.ErrNoData) {
		httputil.NotFound(w, err.Error())
		return
	}
	writeStoreError(w, err, action)
}
