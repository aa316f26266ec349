package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/azybler/ltn-engine/pkg/project"
)

const testOSMXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0.0" lon="0.0"/>
  <node id="2" lat="0.0" lon="1.0"/>
  <node id="3" lat="0.0" lon="2.0"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="residential"/>
  </way>
</osm>
`

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	proj, err := project.New([]byte(testOSMXML), nil, nil, "test area")
	if err != nil {
		t.Fatalf("project.New() error = %v", err)
	}
	return NewHandlers(proj)
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
}

func TestHandleRoute(t *testing.T) {
	h := newTestHandlers(t)
	body := `{"start":{"lat":0,"lng":0},"end":{"lat":0,"lng":2}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	var resp RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DistanceMeters <= 0 {
		t.Error("expected a positive route distance")
	}
}

func TestHandleRouteMissingContentType(t *testing.T) {
	h := newTestHandlers(t)
	body := `{"start":{"lat":0,"lng":0},"end":{"lat":0,"lng":2}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteUnroutable(t *testing.T) {
	h := newTestHandlers(t)
	// Far away from any road in the fixture: snapping fails.
	body := `{"start":{"lat":50,"lng":50},"end":{"lat":0,"lng":2}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusUnprocessableEntity && w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 422 or 404", w.Code)
	}
}

func TestHandleAddModalFilterAndRenderModalFilters(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"point":{"lat":0,"lng":0.5},"kind":"bollard"}`
	req := httptest.NewRequest("POST", "/api/v1/edits/modal-filter", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleAddModalFilter(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("HandleAddModalFilter status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	req2 := httptest.NewRequest("GET", "/api/v1/modal-filters", nil)
	w2 := httptest.NewRecorder()
	h.HandleRenderModalFilters(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("HandleRenderModalFilters status = %d, want 200", w2.Code)
	}
	if !strings.Contains(w2.Body.String(), "bollard") {
		t.Errorf("expected rendered modal filters to mention bollard, got %s", w2.Body.String())
	}
}

func TestHandleAddModalFilterInvalidKind(t *testing.T) {
	h := newTestHandlers(t)
	body := `{"point":{"lat":0,"lng":0.5},"kind":"not_a_kind"}`
	req := httptest.NewRequest("POST", "/api/v1/edits/modal-filter", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleAddModalFilter(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleUndoEmptyJournal(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest("POST", "/api/v1/undo", nil)
	w := httptest.NewRecorder()

	h.HandleUndo(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (JournalEmpty)", w.Code)
	}
}

func TestHandleSavefileRoundTrip(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest("GET", "/api/v1/savefile", nil)
	w := httptest.NewRecorder()

	h.HandleSavefile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if _, err := project.LoadSavefile(w.Body.Bytes()); err != nil {
		t.Errorf("LoadSavefile() on the handler's output error = %v", err)
	}
}
