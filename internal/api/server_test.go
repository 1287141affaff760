package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/engine"
	"github.com/talgya/blockrow/internal/rules"
)

func testServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	r := rules.Default()
	w := engine.NewWorld("api-seed", r, 8)
	eng := engine.NewEngine(w, r, nil)
	return &Server{Eng: eng}, eng
}

func TestAgentSnapshotIncludesNearbyOpportunities(t *testing.T) {
	s, eng := testServer(t)

	a := eng.Register("Scout")
	var zone string
	eng.View(func(w *engine.World) { zone = w.Map.Claimable()[0] })
	a.Zone = zone

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agent/"+a.ID, nil)
	rec := httptest.NewRecorder()
	s.handleAgentRoutes(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Contains(t, snap, "jobs")
	require.Contains(t, snap, "businesses")

	var jobs []city.JobOffer
	require.NoError(t, json.Unmarshal(snap["jobs"], &jobs))
	require.NotEmpty(t, jobs, "a fresh district opens with job offers")
	for _, job := range jobs {
		assert.Equal(t, zone, job.Zone)
	}

	var allowed []string
	require.NoError(t, json.Unmarshal(snap["allowed_commands"], &allowed))
	assert.NotEmpty(t, allowed)
}

func TestAgentSnapshotUnknownAgent(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agent/nobody", nil)
	rec := httptest.NewRecorder()
	s.handleAgentRoutes(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
