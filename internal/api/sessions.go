package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/httputil"
)

// MarkRequest is the optional body of POST /api/sessions/{name}/start and
// /stop.
type MarkRequest struct {
	At *time.Time `json:"at"`
}

func displaySessions(sessions []db.Session) []db.SessionDisplay {
	out := make([]db.SessionDisplay, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessions[i].Display())
	}
	return out
}

// handleSessions handles GET and POST to /api/sessions. GET accepts
// ?mouse=, ?box= and ?limit=.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSessions(w, r)
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	mouseID, err := queryInt(r, "mouse", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	boxID, err := queryInt(r, "box", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if mouseID != 0 && boxID != 0 {
		httputil.BadRequest(w, "filter by mouse or box, not both")
		return
	}

	var sessions []db.Session
	switch {
	case mouseID != 0:
		sessions, err = s.db.GetSessionsForMouse(mouseID, limit)
	case boxID != 0:
		sessions, err = s.db.GetSessionsForBox(boxID, limit)
	default:
		sessions, err = s.db.GetAllSessions(limit)
	}
	if err != nil {
		writeStoreError(w, err, "fetch sessions")
		return
	}
	httputil.WriteJSONOK(w, displaySessions(sessions))
}

// handleCreateSession stores a session. When the body has no name, the
// session is prepared from its mouse, box and board: the name is built from
// the start time (now if absent) and the run parameters are copied.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body db.Session
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	sess := &body
	if body.Name == "" {
		prepared, err := s.prepareSession(&body)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				httputil.BadRequest(w, err.Error())
				return
			}
			writeStoreError(w, err, "prepare session")
			return
		}
		sess = prepared
	}

	if err := s.db.CreateSession(sess); err != nil {
		writeStoreError(w, err, "create session")
		return
	}
	s.metrics.Sessions.Inc()

	created, err := s.db.GetSession(sess.Name)
	if err != nil {
		writeStoreError(w, err, "fetch session")
		return
	}
	httputil.Created(w, created.Display())
}

func (s *Server) prepareSession(body *db.Session) (*db.Session, error) {
	if body.MouseID == 0 {
		return nil, &db.ValidationError{Entity: "session", Field: "mouse"}
	}
	mouse, err := s.db.GetMouse(body.MouseID)
	if err != nil {
		return nil, err
	}
	var box *db.Box
	if body.BoxID != nil {
		if box, err = s.db.GetBox(*body.BoxID); err != nil {
			return nil, err
		}
	}
	var board *db.Board
	if body.BoardID != nil {
		if board, err = s.db.GetBoard(*body.BoardID); err != nil {
			return nil, err
		}
	}

	start := s.now()
	if body.DateTimeStart != nil {
		start = *body.DateTimeStart
	}
	sess := db.NewSession(mouse, box, board, start)

	sess.Logfile = body.Logfile
	sess.AutosketchPath = body.AutosketchPath
	sess.ScriptPath = body.ScriptPath
	sess.Sandbox = body.Sandbox
	sess.IRLParamStimulusArm = body.IRLParamStimulusArm
	sess.DateTimeStop = body.DateTimeStop
	sess.UserData = body.UserData
	if body.SerialPort != nil {
		sess.SerialPort = body.SerialPort
	}
	if body.PythonParamSchedulerName != nil {
		sess.PythonParamSchedulerName = body.PythonParamSchedulerName
	}
	if body.PythonParamStimulusSet != nil {
		sess.PythonParamStimulusSet = body.PythonParamStimulusSet
	}
	return sess, nil
}

func (s *Server) handleSessionColumns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, db.SessionColumns)
}

// handleSessionByName handles GET/PUT/DELETE /api/sessions/{name} and the
// start, stop and annotate actions.
func (s *Server) handleSessionByName(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/sessions/")
	if len(parts) == 0 {
		httputil.BadRequest(w, "missing session name")
		return
	}
	name := parts[0]

	if len(parts) > 1 {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		switch parts[1] {
		case "start":
			s.handleMarkSession(w, r, name, s.db.StartSession, "start session")
		case "stop":
			s.handleMarkSession(w, r, name, s.db.StopSession, "stop session")
		case "annotate":
			s.handleAnnotateSession(w, r, name)
		default:
			httputil.NotFound(w, "unknown session action")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.writeSession(w, name)
	case http.MethodPut:
		var sess db.Session
		if err := httputil.DecodeJSON(r, &sess); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		sess.Name = name
		if err := s.db.UpdateSession(&sess); err != nil {
			writeStoreError(w, err, "update session")
			return
		}
		s.writeSession(w, name)
	case http.MethodDelete:
		if err := s.db.DeleteSession(name); err != nil {
			writeStoreError(w, err, "delete session")
			return
		}
		httputil.NoContent(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) writeSession(w http.ResponseWriter, name string) {
	sess, err := s.db.GetSession(name)
	if err != nil {
		writeStoreError(w, err, "fetch session")
		return
	}
	httputil.WriteJSONOK(w, sess.Display())
}

// handleMarkSession sets a start or stop time, defaulting to now.
func (s *Server) handleMarkSession(w http.ResponseWriter, r *http.Request, name string,
	mark func(string, time.Time) error, action string) {
	var req MarkRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	at := s.now()
	if req.At != nil {
		at = *req.At
	}
	if err := mark(name, at); err != nil {
		writeStoreError(w, err, action)
		return
	}
	s.writeSession(w, name)
}

func (s *Server) handleAnnotateSession(w http.ResponseWriter, r *http.Request, name string) {
	var data db.UserData
	if err := httputil.DecodeJSON(r, &data); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.db.AnnotateSession(name, data); err != nil {
		writeStoreError(w, err, "annotate session")
		return
	}
	s.writeSession(w, name)
}
