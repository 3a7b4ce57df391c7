package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSimplePathSingleSegment(t *testing.T) {
	points := []Coordinate{pt(0, 0), pt(0, 0.001), pt(0, 0.002)}
	segments := []Segment{{ID: "1", Points: points}}

	path, distance, err := FindSimplePath(segments, pt(0, 0), pt(0, 0.002))
	require.NoError(t, err)
	assert.Equal(t, points, path)
	expected := HaversineKm(points[0], points[1]) + HaversineKm(points[1], points[2])
	assert.InDelta(t, expected, distance, 1e-12)
}

func TestFindSimplePathReverseDirection(t *testing.T) {
	points := []Coordinate{pt(0, 0), pt(0, 0.001), pt(0, 0.002)}
	segments := []Segment{{ID: "1", Points: points}}

	path, _, err := FindSimplePath(segments, pt(0, 0.0021), pt(0.0001, 0))
	require.NoError(t, err)
	assert.Equal(t, []Coordinate{points[2], points[1], points[0]}, path)
}

func TestFindSimplePathWithinSecondSegment(t *testing.T) {
	segments := []Segment{
		{ID: "1", Points: []Coordinate{pt(0, 0), pt(0, 0.001)}},
		{ID: "2", Points: []Coordinate{pt(1, 1), pt(1, 1.001), pt(1, 1.002)}},
	}

	path, distance, err := FindSimplePath(segments, pt(1, 1.001), pt(1, 1.002))
	require.NoError(t, err)
	assert.Equal(t, []Coordinate{pt(1, 1.001), pt(1, 1.002)}, path)
	assert.InDelta(t, HaversineKm(pt(1, 1.001), pt(1, 1.002)), distance, 1e-12)
}

func TestFindSimplePathSameStartAndEnd(t *testing.T) {
	segments := []Segment{{ID: "1", Points: []Coordinate{pt(0, 0), pt(0, 0.001)}}}

	path, distance, err := FindSimplePath(segments, pt(0, 0), pt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []Coordinate{pt(0, 0)}, path)
	assert.Zero(t, distance)
}

func TestFindSimplePathSeparateSegmentsDoNotConnect(t *testing.T) {
	// The segments share the coordinate (0, 0.001) but are still separate graphs.
	segments := []Segment{
		{ID: "1", Points: []Coordinate{pt(0, 0), pt(0, 0.001)}},
		{ID: "2", Points: []Coordinate{pt(0, 0.001), pt(0, 0.002)}},
	}

	_, _, err := FindSimplePath(segments, pt(0, 0), pt(0, 0.002))
	require.ErrorIs(t, err, ErrNoPathFound)
}

func TestFindSimplePathNoPoints(t *testing.T) {
	_, _, err := FindSimplePath(nil, pt(0, 0), pt(0, 1))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, _, err = FindSimplePath([]Segment{{ID: "empty"}}, pt(0, 0), pt(0, 1))
	require.ErrorAs(t, err, &verr)
}
