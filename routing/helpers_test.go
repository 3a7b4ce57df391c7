package routing

import (
	"io"

	"github.com/sirupsen/logrus"
)

// lineGraph builds nodes 1..n at the given coordinates and joins consecutive ones with
// two-way edges weighted by great-circle length.
func lineGraph(coords ...Coordinate) *Graph {
	g := NewGraph()
	for i, c := range coords {
		g.AddNode(int64(i+1), c.Lat, c.Lon)
	}
	for i := 1; i < len(coords); i++ {
		g.AddRoad(int64(i), int64(i+1), HaversineDistance(coords[i-1], coords[i]), "")
	}
	return g
}

// gridGraph builds a rows x cols grid with the given spacing in degrees. Node ids are
// row*cols+col+1.
func gridGraph(rows, cols int, spacing float64) *Graph {
	g := NewGraph()
	id := func(r, c int) int64 { return int64(r*cols + c + 1) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.AddNode(id(r, c), float64(r)*spacing, float64(c)*spacing)
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			here, _ := g.NodeCoordinate(id(r, c))
			if c+1 < cols {
				right, _ := g.NodeCoordinate(id(r, c+1))
				g.AddRoad(id(r, c), id(r, c+1), HaversineDistance(here, right), "")
			}
			if r+1 < rows {
				up, _ := g.NodeCoordinate(id(r+1, c))
				g.AddRoad(id(r, c), id(r+1, c), HaversineDistance(here, up), "")
			}
		}
	}
	return g
}

func pt(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// twoSegmentFixture is the network from the two-segment example: four nodes on the
// equator joined in sequence, and segments A and B covering the two ends.
func twoSegmentFixture() (*Graph, []Segment) {
	g := lineGraph(pt(0, 0), pt(0, 0.001), pt(0, 0.01), pt(0, 0.011))
	segments := []Segment{
		{ID: "A", Name: "Segment A", Points: []Coordinate{pt(0, 0), pt(0, 0.001)}},
		{ID: "B", Name: "Segment B", Points: []Coordinate{pt(0, 0.01), pt(0, 0.011)}},
	}
	return g, segments
}
