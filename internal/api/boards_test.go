package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/behavior-lab/runner/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoards(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"name":"BoardA","has_side_he_sensor":true,"use_ir_detector":false,"microstep":8}`
	rec := do(t, s, http.MethodPost, "/api/boards", body)
	requireStatus(t, rec, http.StatusCreated)
	board := decode[db.Board](t, rec)
	require.NotNil(t, board.HasSideHESensor)
	assert.True(t, *board.HasSideHESensor)

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/api/boards/%d/cparams", board.ID), nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, map[string]string{
		db.CParamUseIRDetector: "0",
		db.CParamMicrostep:     "8",
	}, decode[map[string]string](t, rec))

	board.Microstep = nil
	rec = do(t, s, http.MethodPut, fmt.Sprintf("/api/boards/%d", board.ID), board)
	requireStatus(t, rec, http.StatusOK)
	assert.Nil(t, decode[db.Board](t, rec).Microstep)

	rec = do(t, s, http.MethodGet, "/api/boards?name=BoardA", nil)
	requireStatus(t, rec, http.StatusOK)

	rec = do(t, s, http.MethodGet, "/api/boards", nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[[]db.Board](t, rec), 1)

	requireStatus(t, do(t, s, http.MethodGet, fmt.Sprintf("/api/boards/%d/pins", board.ID), nil), http.StatusNotFound)
	requireStatus(t, do(t, s, http.MethodPost, "/api/boards", db.Board{Name: "BoardA", HasSideHESensor: boolPtr(false)}), http.StatusConflict)
	rec = do(t, s, http.MethodPost, "/api/boards", `{"name":"BoardB"}`)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "has_side_he_sensor")
	requireStatus(t, do(t, s, http.MethodDelete, fmt.Sprintf("/api/boards/%d", board.ID), nil), http.StatusNoContent)
	requireStatus(t, do(t, s, http.MethodGet, fmt.Sprintf("/api/boards/%d/cparams", board.ID), nil), http.StatusNotFound)
}
