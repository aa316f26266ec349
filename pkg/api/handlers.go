package api

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"

	"github.com/azybler/ltn-engine/pkg/editlayer"
	"github.com/azybler/ltn-engine/pkg/ltnerr"
	"github.com/azybler/ltn-engine/pkg/mapmodel"
	"github.com/azybler/ltn-engine/pkg/project"
	"github.com/azybler/ltn-engine/pkg/routing"
)

// Handlers holds the HTTP handlers and the single Project they serve. Every
// request takes the mutex for its whole duration: the core (pkg/project and
// everything under it) is single-threaded by spec.md §5, so the HTTP layer's
// concurrency (the teacher's middleware stack, kept below) is a thin mutex
// around that single-threaded core, not a contradiction of it.
type Handlers struct {
	proj *project.Project
	mu   sync.Mutex
}

// NewHandlers creates handlers serving the given Project.
func NewHandlers(proj *project.Project) *Handlers {
	return &Handlers{proj: proj}
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleRenderNeighbourhood handles GET /api/v1/neighbourhood.
func (h *Handlers) HandleRenderNeighbourhood(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleRenderModalFilters handles GET /api/v1/modal-filters.
func (h *Handlers) HandleRenderModalFilters(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.proj.Route(toPoint(req.Start), toPoint(req.End), req.MainRoadPenalty)
	if err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse(result))
}

// HandleCompareRoute handles POST /api/v1/compare-route.
func (h *Handlers) HandleCompareRoute(w http.ResponseWriter, r *http.Request) {
	var req CompareRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	before, after, err := h.proj.CompareRoute(toPoint(req.Start), toPoint(req.End), req.MainRoadPenalty)
	if err != nil {
		writeLtnError(w, err)
		return
	}
	resp := CompareRouteResponse{Before: routeResponse(before)}
	if after != nil {
		resp.After = routeResponse(after)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAddModalFilter handles POST /api/v1/edits/modal-filter.
func (h *Handlers) HandleAddModalFilter(w http.ResponseWriter, r *http.Request) {
	var req AddModalFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, ok := parseFilterKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed_input", "unknown filter kind")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.AddModalFilter(req.Point.Lng, req.Point.Lat, kind); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleAddManyModalFilters handles POST /api/v1/edits/modal-filters/batch.
func (h *Handlers) HandleAddManyModalFilters(w http.ResponseWriter, r *http.Request) {
	var req AddManyModalFiltersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, ok := parseFilterKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed_input", "unknown filter kind")
		return
	}
	line := make([]orb.Point, len(req.Line))
	for i, ll := range req.Line {
		line[i] = toPoint(ll)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.AddManyModalFilters(line, kind); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleDeleteModalFilter handles DELETE /api/v1/edits/modal-filter/{road}.
func (h *Handlers) HandleDeleteModalFilter(w http.ResponseWriter, r *http.Request) {
	road, ok := parseUintPathValue(w, r, "road")
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.DeleteModalFilter(mapmodel.RoadID(road)); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleToggleTravelFlow handles POST /api/v1/edits/travel-flow.
func (h *Handlers) HandleToggleTravelFlow(w http.ResponseWriter, r *http.Request) {
	var req ToggleTravelFlowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.ToggleTravelFlow(req.Road); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleAddDiagonalFilter handles POST /api/v1/edits/diagonal-filter.
func (h *Handlers) HandleAddDiagonalFilter(w http.ResponseWriter, r *http.Request) {
	var req DiagonalFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.AddDiagonalFilter(req.Intersection); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleRotateDiagonalFilter handles POST /api/v1/edits/diagonal-filter/rotate.
func (h *Handlers) HandleRotateDiagonalFilter(w http.ResponseWriter, r *http.Request) {
	var req DiagonalFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.RotateDiagonalFilter(req.Intersection); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleDeleteDiagonalFilter handles
// DELETE /api/v1/edits/diagonal-filter/{intersection}.
func (h *Handlers) HandleDeleteDiagonalFilter(w http.ResponseWriter, r *http.Request) {
	inter, ok := parseUintPathValue(w, r, "intersection")
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.DeleteDiagonalFilter(mapmodel.IntersectionID(inter)); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderModalFilters())
}

// HandleSetBoundary handles POST /api/v1/edits/boundary.
func (h *Handlers) HandleSetBoundary(w http.ResponseWriter, r *http.Request) {
	var req SetBoundaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	polygon := make([][2]float64, len(req.Polygon))
	for i, ll := range req.Polygon {
		polygon[i] = [2]float64{ll.Lng, ll.Lat}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.SetNeighbourhoodBoundary(req.Name, polygon); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleRenameBoundary handles POST /api/v1/edits/boundary/rename.
func (h *Handlers) HandleRenameBoundary(w http.ResponseWriter, r *http.Request) {
	var req RenameBoundaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.RenameNeighbourhoodBoundary(req.Name); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleDeleteBoundary handles DELETE /api/v1/edits/boundary.
func (h *Handlers) HandleDeleteBoundary(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.DeleteNeighbourhoodBoundary(); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleUndo handles POST /api/v1/undo.
func (h *Handlers) HandleUndo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.Undo(); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleRedo handles POST /api/v1/redo.
func (h *Handlers) HandleRedo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.proj.Redo(); err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proj.RenderNeighbourhood())
}

// HandleAggregateImpact handles GET /api/v1/impact/aggregate.
func (h *Handlers) HandleAggregateImpact(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.proj.AggregateImpact())
}

// HandleImpactToDestination handles POST /api/v1/impact/destination.
func (h *Handlers) HandleImpactToDestination(w http.ResponseWriter, r *http.Request) {
	var req ImpactToDestinationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.proj.ImpactToDestination(toPoint(req.Destination), req.GridSize)
	if err != nil {
		writeLtnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleSavefile handles GET /api/v1/savefile, streaming the project's
// current state as a toSavefile blob the caller can persist and later
// reload with cmd/server's -savefile flag.
func (h *Handlers) HandleSavefile(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := h.proj.ToSavefile()
	if err != nil {
		writeLtnError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="project.ltnsave"`)
	w.Write(data)
}

func toPoint(ll LatLngJSON) orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

func routeResponse(r *routing.Result) *RouteResponse {
	if r == nil {
		return nil
	}
	geom := make([]LatLngJSON, len(r.Geometry))
	for i, p := range r.Geometry {
		geom[i] = LatLngJSON{Lat: p[1], Lng: p[0]}
	}
	return &RouteResponse{
		Geometry:       geom,
		DistanceMeters: r.DistanceM,
		DurationS:      r.DurationS,
		Roads:          r.Roads,
	}
}

func parseFilterKind(s string) (editlayer.FilterKind, bool) {
	switch s {
	case "bollard":
		return editlayer.FilterBollard, true
	case "planter":
		return editlayer.FilterPlanter, true
	case "school_street":
		return editlayer.FilterSchoolStreet, true
	case "no_entry":
		return editlayer.FilterNoEntry, true
	default:
		return 0, false
	}
}

func parseUintPathValue(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_input", "invalid "+name+" path value")
		return 0, false
	}
	return v, true
}

// decodeJSON enforces Content-Type, caps the body size, and decodes into
// dst. Returns false (having already written an error response) on failure,
// matching the teacher's HandleRoute request-parsing shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

// writeLtnError maps an ltnerr.Error's Kind to an HTTP status, the way the
// teacher's HandleRoute dispatches on routing.ErrPointTooFar/ErrNoRoute with
// errors.Is.
func writeLtnError(w http.ResponseWriter, err error) {
	var kindErr *ltnerr.Error
	if !errors.As(err, &kindErr) {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch kindErr.Kind {
	case ltnerr.MalformedInput:
		status = http.StatusBadRequest
	case ltnerr.OutOfBounds, ltnerr.NoRoadNearby, ltnerr.NotInteriorRoad, ltnerr.InvalidIntersection:
		status = http.StatusUnprocessableEntity
	case ltnerr.AlreadyFiltered, ltnerr.JournalEmpty:
		status = http.StatusConflict
	case ltnerr.Unroutable:
		status = http.StatusNotFound
	case ltnerr.ReentrantEdit:
		status = http.StatusServiceUnavailable
	case ltnerr.Internal:
		status = http.StatusInternalServerError
	}
	writeError(w, status, string(kindErr.Kind), kindErr.Msg)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Msg: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
