package api

import (
	"net/http"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/behavior-lab/runner/internal/httputil"
)

// WaterResponse is the body of GET /api/boxes/{id}/water.
type WaterResponse struct {
	BoxID  int `json:"box_id"`
	Window int `json:"window"`
	// Nil when no recent session in the box recorded consumption.
	MeanWaterConsumed *float64 `json:"mean_water_consumed"`
}

func (s *Server) handleBoxes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			b, err := s.db.GetBoxByName(name)
			if err != nil {
				writeStoreError(w, err, "fetch box")
				return
			}
			httputil.WriteJSONOK(w, b)
			return
		}
		boxes, err := s.db.GetAllBoxes()
		if err != nil {
			writeStoreError(w, err, "fetch boxes")
			return
		}
		httputil.WriteJSONOK(w, boxes)
	case http.MethodPost:
		var b db.Box
		if err := httputil.DecodeJSON(r, &b); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.db.CreateBox(&b); err != nil {
			writeStoreError(w, err, "create box")
			return
		}
		created, err := s.db.GetBox(b.ID)
		if err != nil {
			writeStoreError(w, err, "fetch box")
			return
		}
		httputil.Created(w, created)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleBoxByID handles GET/PUT/DELETE /api/boxes/{id} and
// GET /api/boxes/{id}/water.
func (s *Server) handleBoxByID(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/boxes/")
	id, ok := parseID(w, parts, "box")
	if !ok {
		return
	}

	if len(parts) > 1 {
		if parts[1] != "water" {
			httputil.NotFound(w, "unknown box resource")
			return
		}
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.handleBoxWater(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := s.db.GetBox(id)
		if err != nil {
			writeStoreError(w, err, "fetch box")
			return
		}
		httputil.WriteJSONOK(w, b)
	case http.MethodPut:
		var b db.Box
		if err := httputil.DecodeJSON(r, &b); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		b.ID = id
		if err := s.db.UpdateBox(&b); err != nil {
			writeStoreError(w, err, "update box")
			return
		}
		updated, err := s.db.GetBox(id)
		if err != nil {
			writeStoreError(w, err, "fetch box")
			return
		}
		httputil.WriteJSONOK(w, updated)
	case http.MethodDelete:
		if err := s.db.DeleteBox(id); err != nil {
			writeStoreError(w, err, "delete box")
			return
		}
		httputil.NoContent(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleBoxWater(w http.ResponseWriter, r *http.Request, id int) {
	n, err := queryInt(r, "n", s.waterWindow)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if _, err := s.db.GetBox(id); err != nil {
		writeStoreError(w, err, "fetch box")
		return
	}
	mean, err := s.db.MeanWaterConsumed(id, n)
	if err != nil {
		writeStoreError(w, err, "compute water consumption")
		return
	}
	httputil.WriteJSONOK(w, WaterResponse{BoxID: id, Window: n, MeanWaterConsumed: mean})
}
