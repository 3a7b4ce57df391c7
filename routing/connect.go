package routing

// ConnectNodes returns the coordinates of the shortest on-network path from one node to
// another. When the nodes are not connected it returns the two endpoint coordinates as a
// straight bridge together with a warning; the route stays continuous either way.
func ConnectNodes(graph *Graph, fromNode, toNode int64) ([]Coordinate, *ConnectorGapWarning) {
	path, _, ok := FindShortestPathAStar(graph, fromNode, toNode)
	if ok {
		return graph.PathCoordinates(path), nil
	}

	from, _ := graph.NodeCoordinate(fromNode)
	to, _ := graph.NodeCoordinate(toNode)
	return []Coordinate{from, to}, &ConnectorGapWarning{
		FromNode: fromNode,
		ToNode:   toNode,
		From:     from,
		To:       to,
	}
}
