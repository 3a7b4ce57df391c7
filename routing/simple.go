package routing

import (
	"container/heap"
	"math"
)

type pointEdge struct {
	to     int
	weight float64
}

// FindSimplePath finds the shortest path between the raw segment points closest to start
// and end, without any road network. Only consecutive points of the same segment are
// joined, so a path never crosses from one segment to another, even where two segments
// share a coordinate. Distance is returned in kilometers.
func FindSimplePath(segments []Segment, start, end Coordinate) ([]Coordinate, float64, error) {
	var coords []Coordinate
	var adjacency [][]pointEdge

	for _, seg := range segments {
		for pi, p := range seg.Points {
			id := len(coords)
			coords = append(coords, p)
			adjacency = append(adjacency, nil)
			if pi > 0 {
				w := HaversineKm(seg.Points[pi-1], p)
				adjacency[id-1] = append(adjacency[id-1], pointEdge{to: id, weight: w})
				adjacency[id] = append(adjacency[id], pointEdge{to: id - 1, weight: w})
			}
		}
	}
	if len(coords) == 0 {
		return nil, 0, newValidationError("segments", "no segment points supplied")
	}

	source := nearestPoint(coords, start)
	target := nearestPoint(coords, end)

	dist := make([]float64, len(coords))
	prev := make([]int, len(coords))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[source] = 0

	pq := &PriorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &PriorityQueueItem{NodeID: int64(source), Priority: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*PriorityQueueItem)
		u := int(item.NodeID)
		if item.Priority > dist[u] {
			continue
		}
		if u == target {
			break
		}
		for _, e := range adjacency[u] {
			alt := dist[u] + e.weight
			if alt < dist[e.to] {
				dist[e.to] = alt
				prev[e.to] = u
				heap.Push(pq, &PriorityQueueItem{NodeID: int64(e.to), Priority: alt})
			}
		}
	}

	if isInf(dist[target]) {
		return nil, 0, ErrNoPathFound
	}

	var reversed []Coordinate
	for at := target; at != -1; at = prev[at] {
		reversed = append(reversed, coords[at])
	}
	path := make([]Coordinate, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path, dist[target], nil
}

// nearestPoint returns the index of the closest point; ties go to the earliest one.
func nearestPoint(coords []Coordinate, target Coordinate) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range coords {
		if d := HaversineKm(c, target); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func isInf(f float64) bool {
	return math.IsInf(f, 1)
}
