package api

import "github.com/azybler/ltn-engine/pkg/mapmodel"

// LatLngJSON is a lat/lng pair in JSON, the same shape the teacher uses for
// route endpoints.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start           LatLngJSON `json:"start"`
	End             LatLngJSON `json:"end"`
	MainRoadPenalty float64    `json:"main_road_penalty,omitempty"`
}

// RouteResponse mirrors routing.Result for JSON transport.
type RouteResponse struct {
	Geometry       []LatLngJSON     `json:"geometry"`
	DistanceMeters float64          `json:"distance_meters"`
	DurationS      float64          `json:"duration_seconds"`
	Roads          []mapmodel.RoadID `json:"roads"`
}

// CompareRouteRequest is the JSON body for POST /api/v1/compare-route.
type CompareRouteRequest struct {
	Start           LatLngJSON `json:"start"`
	End             LatLngJSON `json:"end"`
	MainRoadPenalty float64    `json:"main_road_penalty,omitempty"`
}

// CompareRouteResponse implements spec.md §4.3's compareRoute contract: the
// After leg is nil (omitted) when the edited graph is unroutable, never an
// error — the +Inf sentinel lives one level up, in the impact endpoints.
type CompareRouteResponse struct {
	Before *RouteResponse `json:"before"`
	After  *RouteResponse `json:"after,omitempty"`
}

// AddModalFilterRequest is the JSON body for POST /api/v1/edits/modal-filter.
type AddModalFilterRequest struct {
	Point LatLngJSON `json:"point"`
	Kind  string     `json:"kind"`
}

// AddManyModalFiltersRequest is the JSON body for
// POST /api/v1/edits/modal-filters/batch.
type AddManyModalFiltersRequest struct {
	Line []LatLngJSON `json:"line"`
	Kind string       `json:"kind"`
}

// ToggleTravelFlowRequest is the JSON body for POST /api/v1/edits/travel-flow.
type ToggleTravelFlowRequest struct {
	Road mapmodel.RoadID `json:"road"`
}

// DiagonalFilterRequest is the JSON body for the diagonal-filter endpoints.
type DiagonalFilterRequest struct {
	Intersection mapmodel.IntersectionID `json:"intersection"`
}

// SetBoundaryRequest is the JSON body for POST /api/v1/edits/boundary.
type SetBoundaryRequest struct {
	Name    string       `json:"name"`
	Polygon []LatLngJSON `json:"polygon"`
}

// RenameBoundaryRequest is the JSON body for
// POST /api/v1/edits/boundary/rename.
type RenameBoundaryRequest struct {
	Name string `json:"name"`
}

// ImpactToDestinationRequest is the JSON body for
// POST /api/v1/impact/destination.
type ImpactToDestinationRequest struct {
	Destination LatLngJSON `json:"destination"`
	GridSize    int        `json:"grid_size,omitempty"`
}

// ErrorResponse is the JSON response for a failed request, mapped from an
// ltnerr.Error the way the teacher maps routing.ErrPointTooFar/ErrNoRoute.
type ErrorResponse struct {
	Error string `json:"error"`
	Msg   string `json:"message,omitempty"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
