package api

import (
	"net/http"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/httputil"
)

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			b, err := s.db.GetBoardByName(name)
			if err != nil {
				writeStoreError(w, err, "fetch board")
				return
			}
			httputil.WriteJSONOK(w, b)
			return
		}
		boards, err := s.db.GetAllBoards()
		if err != nil {
			writeStoreError(w, err, "fetch boards")
			return
		}
		httputil.WriteJSONOK(w, boards)
	case http.MethodPost:
		var b db.Board
		if err := httputil.DecodeJSON(r, &b); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.db.CreateBoard(&b); err != nil {
			writeStoreError(w, err, "create board")
			return
		}
		created, err := s.db.GetBoard(b.ID)
		if err != nil {
			writeStoreError(w, err, "fetch board")
			return
		}
		httputil.Created(w, created)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleBoardByID handles GET/PUT/DELETE /api/boards/{id} and
// GET /api/boards/{id}/cparams.
func (s *Server) handleBoardByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/boards/")
	id, ok := parseID(w, parts, "board")
	if !ok {
		return
	}

	if len(parts) > 1 {
		if parts[1] != "cparams" {
			httputil.NotFound(w, "unknown board resource")
			return
		}
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		b, err := s.db.GetBoard(id)
		if err != nil {
			writeStoreError(w, err, "fetch board")
			return
		}
		httputil.WriteJSONOK(w, b.CParameters())
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := s.db.GetBoard(id)
		if err != nil {
			writeStoreError(w, err, "fetch board")
			return
		}
		httputil.WriteJSONOK(w, b)
	case http.MethodPut:
		var b db.Board
		if err := httputil.DecodeJSON(r, &b); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		b.ID = id
		if err := s.db.UpdateBoard(&b); err != nil {
			writeStoreError(w, err, "update board")
			return
		}
		updated, err := s.db.GetBoard(id)
		if err != nil {
			writeStoreError(w, err, "fetch board")
			return
		}
		httputil.WriteJSONOK(w, updated)
	case http.MethodDelete:
		if err := s.db.DeleteBoard(id); err != nil {
			writeStoreError(w, err, "delete board")
			return
		}
		httputil.NoContent(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}
