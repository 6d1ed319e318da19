package api

import (
	"net/http"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/httputil"
)

// handleProtocols serves /api/protocols/{arduino|python}[/{id}].
func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/protocols/")
	if len(parts) == 0 {
		httputil.BadRequest(w, "missing protocol kind")
		return
	}
	kind, err := db.ParseProtocolKind(parts[0])
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}

	if len(parts) == 1 {
		s.handleProtocolList(w, r, kind)
		return
	}

	id, ok := parseID(w, parts[1:], string(kind)+" protocol")
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.db.GetProtocol(kind, id)
		if err != nil {
			writeStoreError(w, err, "fetch protocol")
			return
		}
		httputil.WriteJSONOK(w, p)
	case http.MethodPut:
		var p db.Protocol
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		p.ID, p.Kind = id, kind
		if err := s.db.UpdateProtocol(&p); err != nil {
			writeStoreError(w, err, "update protocol")
			return
		}
		httputil.WriteJSONOK(w, p)
	case http.MethodDelete:
		if err := s.db.DeleteProtocol(kind, id); err != nil {
			writeStoreError(w, err, "delete protocol")
			return
		}
		httputil.NoContent(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleProtocolList(w http.ResponseWriter, r *http.Request, kind db.ProtocolKind) {
	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			lookup := s.db.GetArduinoProtocolByName
			if kind == db.PythonProtocol {
				lookup = s.db.GetPythonProtocolByName
			}
			p, err := lookup(name)
			if err != nil {
				writeStoreError(w, err, "fetch protocol")
				return
			}
			httputil.WriteJSONOK(w, p)
			return
		}
		protocols, err := s.db.GetAllProtocols(kind)
		if err != nil {
			writeStoreError(w, err, "fetch protocols")
			return
		}
		httputil.WriteJSONOK(w, protocols)
	case http.MethodPost:
		var p db.Protocol
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		p.Kind = kind
		if err := s.db.CreateProtocol(&p); err != nil {
			writeStoreError(w, err, "create protocol")
			return
		}
		httputil.Created(w, p)
	default:
		httputil.MethodNotAllowed(w)
	}
}
