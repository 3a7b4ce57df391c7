package routing

import "fmt"

// SegmentColors is the display palette, cycled by position in the visit order.
var SegmentColors = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
}

// SegmentInfo locates one segment inside the assembled coordinate sequence.
// StartIdx and EndIdx are inclusive indices into AssembledRoute.Path.
type SegmentInfo struct {
	ID       SegmentID `json:"id"`
	Name     string    `json:"name"`
	Order    int       `json:"order"`
	Color    string    `json:"color"`
	StartIdx int       `json:"start_idx"`
	EndIdx   int       `json:"end_idx"`
}

// AssembledRoute is the final stitched route.
type AssembledRoute struct {
	Path           []Coordinate
	Segments       []SegmentInfo
	TotalDistance  float64 // connector costs only, in meters; +Inf when disconnected
	SegmentsLength float64 // sum of the snapped segment lengths, in meters
	Order          []int
	ConnectorGaps  []ConnectorGapWarning
}

// Disconnected reports whether some transition in the order has no network path.
func (r *AssembledRoute) Disconnected() bool {
	return isInf(r.TotalDistance)
}

// AssembleRoute concatenates the snapped paths in visit order and inserts connector
// coordinates between consecutive segments. Connector coordinates belong to no segment.
//
// totalDistance is the orderer's connector cost and is carried through unchanged; the
// length of the segments themselves is reported separately in SegmentsLength.
func AssembleRoute(graph *Graph, segments []Segment, paths [][]int64, order []int, totalDistance float64) (*AssembledRoute, error) {
	if len(segments) != len(paths) {
		return nil, fmt.Errorf("assemble: %d segments but %d snapped paths", len(segments), len(paths))
	}
	if len(order) != len(paths) {
		return nil, fmt.Errorf("assemble: order has %d entries for %d paths", len(order), len(paths))
	}

	route := &AssembledRoute{
		Path:          make([]Coordinate, 0),
		Segments:      make([]SegmentInfo, 0, len(order)),
		TotalDistance: totalDistance,
		Order:         append([]int(nil), order...),
		ConnectorGaps: make([]ConnectorGapWarning, 0),
	}

	for k, idx := range order {
		if idx < 0 || idx >= len(paths) {
			return nil, fmt.Errorf("assemble: order index %d out of range", idx)
		}
		path := paths[idx]
		if len(path) == 0 {
			return nil, fmt.Errorf("assemble: segment %s has an empty snapped path", segments[idx].ID)
		}

		coords := graph.PathCoordinates(path)
		if len(coords) != len(path) {
			return nil, fmt.Errorf("assemble: segment %s references nodes missing from the graph", segments[idx].ID)
		}

		start := len(route.Path)
		route.Path = append(route.Path, coords...)
		route.Segments = append(route.Segments, SegmentInfo{
			ID:       segments[idx].ID,
			Name:     segments[idx].Name,
			Order:    k,
			Color:    SegmentColors[k%len(SegmentColors)],
			StartIdx: start,
			EndIdx:   len(route.Path) - 1,
		})
		route.SegmentsLength += PolylineLength(coords)

		if k+1 < len(order) {
			next := order[k+1]
			if next < 0 || next >= len(paths) || len(paths[next]) == 0 {
				return nil, fmt.Errorf("assemble: order index %d out of range", next)
			}
			connector, gap := ConnectNodes(graph, path[len(path)-1], paths[next][0])
			if gap != nil {
				gap.FromSegment = string(segments[idx].ID)
				gap.ToSegment = string(segments[next].ID)
				route.ConnectorGaps = append(route.ConnectorGaps, *gap)
			}
			route.Path = append(route.Path, connector...)
		}
	}

	return route, nil
}
