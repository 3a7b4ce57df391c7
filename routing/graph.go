package routing

// Node represents a vertex in the road network
type Node struct {
	ID        int64   // Unique identifier for the node (OSM node id when fetched from OSM)
	Latitude  float64 // Geographic latitude in degrees
	Longitude float64 // Geographic longitude in degrees
}

func (n *Node) Coordinate() Coordinate {
	return Coordinate{Lat: n.Latitude, Lon: n.Longitude}
}

// Edge represents a directed connection between two nodes
type Edge struct {
	FromID   int64   // ID of the starting node
	ToID     int64   // ID of the ending node
	Distance float64 // Physical length in meters
	Name     string  // Optional street name
}

// Graph represents a directed road network. Two-way roads are stored as a pair of edges.
// A Graph is read-only once handed to the planner.
type Graph struct {
	Nodes map[int64]*Node   // Map of node IDs to node objects
	Edges map[int64][]*Edge // Map of node IDs to outgoing edges
}

func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[int64]*Node),
		Edges: make(map[int64][]*Edge),
	}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(id int64, lat, lon float64) {
	g.Nodes[id] = &Node{ID: id, Latitude: lat, Longitude: lon}
}

// AddEdge adds a directed edge. Parallel edges keep only the shortest one.
func (g *Graph) AddEdge(from, to int64, distance float64, name string) {
	for _, e := range g.Edges[from] {
		if e.ToID == to {
			if distance < e.Distance {
				e.Distance = distance
				e.Name = name
			}
			return
		}
	}
	g.Edges[from] = append(g.Edges[from], &Edge{
		FromID:   from,
		ToID:     to,
		Distance: distance,
		Name:     name,
	})
}

// AddRoad adds edges in both directions.
func (g *Graph) AddRoad(a, b int64, distance float64, name string) {
	g.AddEdge(a, b, distance, name)
	g.AddEdge(b, a, distance, name)
}

// EdgeLength returns the length of the direct edge from -> to, if any.
func (g *Graph) EdgeLength(from, to int64) (float64, bool) {
	for _, e := range g.Edges[from] {
		if e.ToID == to {
			return e.Distance, true
		}
	}
	return 0, false
}

// NodeCoordinate returns the coordinate of a node.
func (g *Graph) NodeCoordinate(id int64) (Coordinate, bool) {
	n, ok := g.Nodes[id]
	if !ok {
		return Coordinate{}, false
	}
	return n.Coordinate(), true
}

// PathCoordinates maps node ids to coordinates, skipping ids missing from the graph.
func (g *Graph) PathCoordinates(path []int64) []Coordinate {
	coords := make([]Coordinate, 0, len(path))
	for _, id := range path {
		if c, ok := g.NodeCoordinate(id); ok {
			coords = append(coords, c)
		}
	}
	return coords
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.Edges {
		n += len(edges)
	}
	return n
}
