package routing

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// CostMatrix holds on-network connection costs between segments, in meters.
// Entry [i][j] is the length from the last node of path i to the first node of path j,
// or +Inf when no path exists. The diagonal is unused and left at 0.
type CostMatrix [][]float64

// BuildCostMatrix fills every off-diagonal cell with an A* search. Cells are computed on a
// worker pool of the given size; each task writes only its own cell.
func BuildCostMatrix(ctx context.Context, graph *Graph, paths [][]int64, workers int) (CostMatrix, error) {
	n := len(paths)
	matrix := make(CostMatrix, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for _, p := range paths {
		if len(p) == 0 {
			return nil, newValidationError("paths", "snapped path is empty")
		}
	}
	if workers < 1 {
		workers = 1
	}

	// gctx is cancelled once Wait returns; only the caller's ctx is checked afterwards.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if gctx.Err() != nil {
				break
			}
			i, j := i, j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				from := paths[i][len(paths[i])-1]
				to := paths[j][0]
				_, distance, ok := FindShortestPathAStar(graph, from, to)
				if !ok {
					distance = math.Inf(1)
				}
				matrix[i][j] = distance
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// OrderSegments picks a visiting order with the fixed-start nearest neighbour heuristic.
// It starts at index 0 and repeatedly moves to the cheapest unvisited index, ties going to
// the lowest index. Unreachable candidates are still taken once nothing finite is left, in
// which case the returned total is +Inf. This is a greedy approximation of the open
// asymmetric TSP path and is not optimal.
func OrderSegments(matrix CostMatrix) ([]int, float64) {
	n := len(matrix)
	if n == 0 {
		return []int{}, 0
	}

	visited := make([]bool, n)
	order := make([]int, 0, n)
	order = append(order, 0)
	visited[0] = true
	total := 0.0

	current := 0
	for len(order) < n {
		next := -1
		best := math.Inf(1)
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			cost := matrix[current][candidate]
			if next == -1 || cost < best {
				next = candidate
				best = cost
			}
		}
		visited[next] = true
		order = append(order, next)
		total += best
		current = next
	}

	return order, total
}

// OrderDistance sums matrix entries along consecutive pairs of order.
func OrderDistance(matrix CostMatrix, order []int) float64 {
	total := 0.0
	for k := 0; k+1 < len(order); k++ {
		total += matrix[order[k]][order[k+1]]
	}
	return total
}
