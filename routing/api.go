package routing

// Bounds is a request bounding box.
type Bounds struct {
	SouthWest Coordinate `json:"southwest"`
	NorthEast Coordinate `json:"northeast"`
}

// UpdateSegmentsRequest is the body of a segment search.
type UpdateSegmentsRequest struct {
	SouthWest *Coordinate `json:"southwest"`
	NorthEast *Coordinate `json:"northeast"`
}

// Bounds checks that both corners are present and valid.
func (r UpdateSegmentsRequest) Bounds() (Bounds, error) {
	if r.SouthWest == nil || r.NorthEast == nil {
		return Bounds{}, newValidationError("bounds", "southwest and northeast are required")
	}
	if !r.SouthWest.Valid() || !r.NorthEast.Valid() {
		return Bounds{}, newValidationError("bounds", "southwest and northeast must be valid coordinates")
	}
	return Bounds{SouthWest: *r.SouthWest, NorthEast: *r.NorthEast}, nil
}

type FindPathRequest struct {
	Segments []Segment   `json:"segments"`
	Start    *Coordinate `json:"start"`
	End      *Coordinate `json:"end"`
}

type FindPathResponse struct {
	Path     []Coordinate `json:"path"`
	Distance float64      `json:"distance"` // kilometers
}

type BestPathRequest struct {
	Segments []Segment `json:"segments"`
}

// BestPathResponse is the JSON form of an AssembledRoute. Distances are in meters.
// TotalDistance is null when the route is disconnected.
type BestPathResponse struct {
	Path            []Coordinate          `json:"path"`
	Segments        []SegmentInfo         `json:"segments"`
	TotalDistance   *float64              `json:"total_distance"`
	Disconnected    bool                  `json:"disconnected"`
	OptimalOrder    []int                 `json:"optimal_order"`
	SegmentsCovered int                   `json:"segments_covered"`
	SegmentsLength  float64               `json:"segments_length"`
	ConnectorGaps   []ConnectorGapWarning `json:"connector_gaps"`
}

func PrepareBestPathResponse(route *AssembledRoute) BestPathResponse {
	resp := BestPathResponse{
		Path:            route.Path,
		Segments:        route.Segments,
		OptimalOrder:    route.Order,
		SegmentsCovered: len(route.Segments),
		SegmentsLength:  route.SegmentsLength,
		ConnectorGaps:   route.ConnectorGaps,
	}
	if route.Disconnected() {
		resp.Disconnected = true
	} else {
		total := route.TotalDistance
		resp.TotalDistance = &total
	}
	return resp
}
