package routing

import (
	"math"
)

const (
	EARTH_RADIUS_KM = 6371.0
	EARTH_RADIUS_M  = EARTH_RADIUS_KM * 1000
)

// Coordinate is a WGS84 position in degrees. It marshals to JSON as [lat, lng].
type Coordinate struct {
	Lat float64
	Lon float64
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// centralAngle is the haversine great-circle angle between two coordinates, in radians.
func centralAngle(coord1, coord2 Coordinate) float64 {
	phi1 := toRadians(coord1.Lat)
	phi2 := toRadians(coord2.Lat)
	deltaPhi := toRadians(coord2.Lat - coord1.Lat)
	deltaLambda := toRadians(coord2.Lon - coord1.Lon)

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// HaversineDistance returns the great-circle distance in meters.
// Snapping, ordering and connectors all work in meters.
func HaversineDistance(coord1, coord2 Coordinate) float64 {
	return EARTH_RADIUS_M * centralAngle(coord1, coord2)
}

// HaversineKm returns the great-circle distance in kilometers.
// Only the simple (network-free) path finder reports kilometers.
func HaversineKm(coord1, coord2 Coordinate) float64 {
	return EARTH_RADIUS_KM * centralAngle(coord1, coord2)
}

// FindNearestNode returns the graph node closest to coord by great-circle distance,
// together with that distance in meters. Equal distances resolve to the lowest node id.
func FindNearestNode(coord Coordinate, graph *Graph) (int64, float64, error) {
	if graph == nil || len(graph.Nodes) == 0 {
		return 0, 0, ErrNoNodesFound
	}

	var nearestNode int64
	minDistance := math.Inf(1)
	found := false

	for nodeID, node := range graph.Nodes {
		dist := HaversineDistance(coord, node.Coordinate())
		if !found || dist < minDistance || (dist == minDistance && nodeID < nearestNode) {
			minDistance = dist
			nearestNode = nodeID
			found = true
		}
	}

	return nearestNode, minDistance, nil
}

// PolylineLength sums the great-circle lengths of consecutive coordinates, in meters.
func PolylineLength(coords []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += HaversineDistance(coords[i-1], coords[i])
	}
	return total
}
