package routing

import (
	"container/heap"
)

type PriorityQueueItem struct {
	NodeID   int64
	Priority float64
	GScore   float64
	Index    int
}

type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Priority == pq[j].Priority {
		return pq[i].NodeID < pq[j].NodeID
	}
	return pq[i].Priority < pq[j].Priority
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*PriorityQueueItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[0 : n-1]
	return item
}

func astarHeuristic(nodeID int64, target Coordinate, graph *Graph) float64 {
	node, exists := graph.Nodes[nodeID]
	if !exists {
		return 0.0
	}
	return HaversineDistance(node.Coordinate(), target)
}

// FindShortestPathAStar runs A* from startNode to endNode using edge length as weight and
// great-circle distance as the admissible heuristic. It returns the node path and its length
// in meters, or ok=false when either node is unknown or no path exists.
func FindShortestPathAStar(graph *Graph, startNode, endNode int64) (path []int64, distance float64, ok bool) {
	if _, exists := graph.Nodes[startNode]; !exists {
		return nil, 0, false
	}
	end, exists := graph.Nodes[endNode]
	if !exists {
		return nil, 0, false
	}
	if startNode == endNode {
		return []int64{startNode}, 0, true
	}
	target := end.Coordinate()

	openSet := &PriorityQueue{}
	heap.Init(openSet)

	gScore := map[int64]float64{startNode: 0}
	previous := make(map[int64]int64)
	closed := make(map[int64]bool)

	heap.Push(openSet, &PriorityQueueItem{
		NodeID:   startNode,
		Priority: astarHeuristic(startNode, target, graph),
	})

	found := false
	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*PriorityQueueItem)
		currentNode := current.NodeID

		if currentNode == endNode {
			found = true
			break
		}
		// Stale queue entries are skipped rather than decreased in place.
		if closed[currentNode] || current.GScore > gScore[currentNode] {
			continue
		}
		closed[currentNode] = true

		for _, edge := range graph.Edges[currentNode] {
			neighborNode := edge.ToID
			if closed[neighborNode] {
				continue
			}
			if _, known := graph.Nodes[neighborNode]; !known {
				continue
			}

			tentativeGScore := gScore[currentNode] + edge.Distance
			if existingGScore, seen := gScore[neighborNode]; !seen || tentativeGScore < existingGScore {
				previous[neighborNode] = currentNode
				gScore[neighborNode] = tentativeGScore
				heap.Push(openSet, &PriorityQueueItem{
					NodeID:   neighborNode,
					Priority: tentativeGScore + astarHeuristic(neighborNode, target, graph),
					GScore:   tentativeGScore,
				})
			}
		}
	}

	if !found {
		return nil, 0, false
	}

	current := endNode
	for current != startNode {
		path = append(path, current)
		current = previous[current]
	}
	path = append(path, startNode)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, gScore[endNode], true
}
