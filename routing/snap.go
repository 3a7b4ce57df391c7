package routing

import (
	"math"

	"github.com/sirupsen/logrus"
)

// SnapResult is the outcome of snapping one polyline onto the road network.
type SnapResult struct {
	Path             []int64 // Snapped node sequence, never empty
	InitialDeviation float64 // Deviation of the deduplicated candidate path, in meters
	Deviation        float64 // Deviation after pruning, always <= InitialDeviation
	Removed          int     // Number of nodes removed by pruning
}

type nodePair struct {
	from, to int64
}

// snapper holds the per-call state of one SnapPath invocation.
type snapper struct {
	graph     *Graph
	points    []Coordinate
	originals []float64 // great-circle length of each original consecutive pair
	memo      map[nodePair]float64
}

// SnapPath maps a raw polyline onto graph nodes and prunes interior nodes while the
// total deviation from the original geometry strictly decreases.
//
// Candidate generation takes the nearest node of every point and collapses consecutive
// duplicates. Pruning is greedy: the first interior removal that lowers the deviation
// is accepted and the scan restarts from the front, until a full scan finds nothing.
func SnapPath(graph *Graph, points []Coordinate, log logrus.FieldLogger) (*SnapResult, error) {
	if len(points) < 2 {
		return nil, newValidationError("points", "at least 2 points are required to snap a segment")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	candidates := make([]int64, 0, len(points))
	for i, p := range points {
		nodeID, _, err := FindNearestNode(p, graph)
		if err != nil {
			log.WithError(err).WithField("point_index", i).Debug("nearest node lookup failed, skipping point")
			continue
		}
		candidates = append(candidates, nodeID)
	}
	if len(candidates) == 0 {
		return nil, ErrNoNodesFound
	}

	path := dedupeConsecutive(candidates)

	s := &snapper{
		graph:     graph,
		points:    points,
		originals: make([]float64, len(points)-1),
		memo:      make(map[nodePair]float64),
	}
	for i := 0; i+1 < len(points); i++ {
		s.originals[i] = HaversineDistance(points[i], points[i+1])
	}

	initial := s.deviation(path)
	pruned, deviation := s.prune(path, initial)

	return &SnapResult{
		Path:             pruned,
		InitialDeviation: initial,
		Deviation:        deviation,
		Removed:          len(path) - len(pruned),
	}, nil
}

func dedupeConsecutive(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// deviation sums |original - network| over original pairs that still have a matching
// pair of positions in path. Pairs past the end of path do not contribute.
func (s *snapper) deviation(path []int64) float64 {
	total := 0.0
	for i, original := range s.originals {
		if i+1 >= len(path) {
			break
		}
		total += math.Abs(original - s.nodeDistance(path[i], path[i+1]))
	}
	return total
}

// nodeDistance prefers a direct edge, then a shortest path, then the straight line.
// Edge direction is ignored: an edge b->a counts as the direct edge for a->b.
func (s *snapper) nodeDistance(a, b int64) float64 {
	if a == b {
		return 0
	}
	key := nodePair{a, b}
	if d, ok := s.memo[key]; ok {
		return d
	}

	var d float64
	if length, ok := s.graph.EdgeLength(a, b); ok {
		d = length
	} else if length, ok := s.graph.EdgeLength(b, a); ok {
		d = length
	} else if _, length, ok := FindShortestPathAStar(s.graph, a, b); ok {
		d = length
	} else {
		ca, _ := s.graph.NodeCoordinate(a)
		cb, _ := s.graph.NodeCoordinate(b)
		d = HaversineDistance(ca, cb)
	}

	s.memo[key] = d
	return d
}

// prune runs the fixed-point removal loop over one slice, using a single scratch buffer
// for trial paths.
func (s *snapper) prune(path []int64, deviation float64) ([]int64, float64) {
	current := append([]int64(nil), path...)
	scratch := make([]int64, 0, len(current))

	for {
		improved := false
		for i := 1; i < len(current)-1; i++ {
			scratch = append(scratch[:0], current[:i]...)
			scratch = append(scratch, current[i+1:]...)

			trial := s.deviation(scratch)
			if trial < deviation {
				current = append(current[:i], current[i+1:]...)
				deviation = trial
				improved = true
				break
			}
		}
		if !improved {
			return current, deviation
		}
	}
}
