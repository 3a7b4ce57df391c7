package routing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapPathRequiresTwoPoints(t *testing.T) {
	g := lineGraph(pt(0, 0), pt(0, 0.001))

	_, err := SnapPath(g, []Coordinate{pt(0, 0)}, quietLogger())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "points", verr.Field)

	_, err = SnapPath(g, nil, quietLogger())
	require.ErrorAs(t, err, &verr)
}

func TestSnapPathEmptyGraph(t *testing.T) {
	_, err := SnapPath(NewGraph(), []Coordinate{pt(0, 0), pt(0, 0.001)}, quietLogger())
	require.ErrorIs(t, err, ErrNoNodesFound)
}

func TestSnapPathExactNodes(t *testing.T) {
	g := lineGraph(pt(0, 0), pt(0, 0.001), pt(0, 0.002))

	res, err := SnapPath(g, []Coordinate{pt(0, 0), pt(0, 0.001), pt(0, 0.002)}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, res.Path)
	assert.InDelta(t, 0, res.Deviation, 1e-6)
	assert.Zero(t, res.Removed)
}

func TestSnapPathCollapsesConsecutiveDuplicates(t *testing.T) {
	g := lineGraph(pt(0, 0), pt(0, 0.001))

	points := []Coordinate{pt(0, 0), pt(0, 0.0001), pt(0, 0.0002), pt(0, 0.001)}
	res, err := SnapPath(g, points, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.Path)
}

func TestSnapPathKeepsNonConsecutiveRepeats(t *testing.T) {
	g := lineGraph(pt(0, 0), pt(0, 0.001))

	points := []Coordinate{pt(0, 0), pt(0, 0.001), pt(0, 0)}
	res, err := SnapPath(g, points, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 1}, res.Path)
}

func TestSnapPathPrunesDetourNode(t *testing.T) {
	g := NewGraph()
	g.AddNode(1, 0, 0)
	g.AddNode(2, 0, 0.001)
	g.AddNode(3, 0, 0.002)
	g.AddNode(4, 0.01, 0.001)
	// Node 2 sits on the polyline but is only reachable through the far node 4.
	g.AddRoad(1, 3, HaversineDistance(pt(0, 0), pt(0, 0.002)), "")
	g.AddRoad(1, 4, HaversineDistance(pt(0, 0), pt(0.01, 0.001)), "")
	g.AddRoad(4, 2, HaversineDistance(pt(0.01, 0.001), pt(0, 0.001)), "")
	g.AddRoad(4, 3, HaversineDistance(pt(0.01, 0.001), pt(0, 0.002)), "")

	points := []Coordinate{pt(0, 0), pt(0, 0.001), pt(0, 0.002)}
	res, err := SnapPath(g, points, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, res.Path)
	assert.Equal(t, 1, res.Removed)
	assert.Less(t, res.Deviation, res.InitialDeviation)
	// Only the first original pair still has a matching node pair.
	expected := math.Abs(HaversineDistance(points[0], points[1]) - HaversineDistance(pt(0, 0), pt(0, 0.002)))
	assert.InDelta(t, expected, res.Deviation, 1e-6)
}

func TestSnapPathFallsBackToStraightLine(t *testing.T) {
	g := NewGraph()
	g.AddNode(1, 0, 0)
	g.AddNode(2, 0, 0.001)

	points := []Coordinate{pt(0, 0), pt(0, 0.001)}
	res, err := SnapPath(g, points, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.Path)
	assert.InDelta(t, 0, res.Deviation, 1e-6)
}

func TestSnapPathDeviationNeverIncreases(t *testing.T) {
	g := gridGraph(6, 6, 0.001)

	polylines := [][]Coordinate{
		{pt(0.0002, 0.0001), pt(0.0011, 0.0013), pt(0.0019, 0.0032), pt(0.0041, 0.0038), pt(0.0049, 0.0049)},
		{pt(0, 0), pt(0.0004, 0.0004), pt(0.0008, 0.0008), pt(0.0012, 0.0012), pt(0.0016, 0.0016), pt(0.002, 0.002)},
		{pt(0.005, 0), pt(0.0035, 0.0021), pt(0.0047, 0.0033), pt(0.0003, 0.0049)},
		{pt(0.0001, 0.0001), pt(0.0049, 0.0001)},
	}

	for _, points := range polylines {
		res, err := SnapPath(g, points, quietLogger())
		require.NoError(t, err)
		require.NotEmpty(t, res.Path)
		assert.LessOrEqual(t, res.Deviation, res.InitialDeviation)
		assert.GreaterOrEqual(t, res.Removed, 0)
		for _, id := range res.Path {
			assert.Contains(t, g.Nodes, id)
		}
	}
}

func TestSnapPathIsDeterministic(t *testing.T) {
	g := gridGraph(5, 5, 0.001)
	points := []Coordinate{pt(0.0002, 0.0001), pt(0.0011, 0.0013), pt(0.0019, 0.0032), pt(0.0038, 0.0039)}

	first, err := SnapPath(g, points, quietLogger())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := SnapPath(g, points, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, first.Path, again.Path)
	}
}

func TestNodeDistanceAcceptsReverseEdge(t *testing.T) {
	g := NewGraph()
	g.AddNode(1, 0, 0)
	g.AddNode(2, 0, 0.001)
	g.AddNode(3, 0.001, 0.0005)
	g.AddEdge(2, 1, 500, "")
	g.AddEdge(1, 3, 300, "")
	g.AddEdge(3, 2, 300, "")
	s := &snapper{graph: g, memo: make(map[nodePair]float64)}

	assert.Equal(t, 500.0, s.nodeDistance(1, 2))
	assert.Equal(t, 500.0, s.nodeDistance(2, 1))
}
