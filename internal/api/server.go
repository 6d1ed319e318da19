// Package api serves the runner's JSON admin API over the experiment store.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/hardware"
	"github.com/behavior-lab/runner/internal/httputil"
	"github.com/behavior-lab/runner/internal/monitoring"
)

type Server struct {
	db          *db.DB
	lister      hardware.Lister
	metrics     *Metrics
	waterWindow int
	now         func() time.Time
}

// Options configures a Server. Zero values select the defaults.
type Options struct {
	// Lister enumerates serial ports; defaults to the host's ports.
	Lister hardware.Lister
	// WaterWindow is the number of sessions averaged by the water endpoint.
	WaterWindow int
	// Metrics receives request counts; a fresh registry is used when nil.
	Metrics *Metrics
}

func NewServer(store *db.DB, o Options) *Server {
	s := &Server{
		db:          store,
		lister:      o.Lister,
		metrics:     o.Metrics,
		waterWindow: o.WaterWindow,
		now:         time.Now,
	}
	if s.lister == nil {
		s.lister = hardware.SystemLister{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.waterWindow <= 0 {
		s.waterWindow = db.DefaultWaterWindow
	}
	return s
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ServeMux registers every API route. Each route is instrumented under its
// registered pattern.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.handle(mux, "/api/mice", s.handleMice)
	s.handle(mux, "/api/mice/", s.handleMouseByID)
	s.handle(mux, "/api/boxes", s.handleBoxes)
	s.handle(mux, "/api/boxes/", s.handleBoxByID)
	s.handle(mux, "/api/boards", s.handleBoards)
	s.handle(mux, "/api/boards/", s.handleBoardByID)
	s.handle(mux, "/api/protocols/", s.handleProtocols)
	s.handle(mux, "/api/sessions", s.handleSessions)
	s.handle(mux, "/api/sessions/columns", s.handleSessionColumns)
	s.handle(mux, "/api/sessions/", s.handleSessionByName)
	s.handle(mux, "/api/hardware/ports", s.handleHardwarePorts)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.metrics.Instrument(pattern, h))
}

// Handler returns the mux wrapped in request-id and logging middleware.
func (s *Server) Handler() http.Handler {
	return RequestIDMiddleware(LoggingMiddleware(s.ServeMux()))
}

// pathParts splits the path below prefix, e.g. "/api/mice/3/sessions" with
// prefix "/api/mice/" gives ["3", "sessions"].
func pathParts(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func parseID(w http.ResponseWriter, parts []string, what string) (int, bool) {
	if len(parts) == 0 || parts[0] == "" {
		httputil.BadRequest(w, "missing "+what+" id")
		return 0, false
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, returning def when it
// is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, action string) {
	msg := err.Error()
	switch {
	case errors.Is(err, db.ErrRequired):
		httputil.BadRequest(w, msg)
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, msg)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		httputil.Conflict(w, "already exists: "+msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		httputil.Conflict(w, "referenced record conflict: "+msg)
	case strings.Contains(msg, "CHECK constraint failed"):
		httputil.BadRequest(w, msg)
	default:
		monitoring.Logf("failed to %s: %v", action, err)
		httputil.InternalServerError(w, "failed to "+action)
	}
}
