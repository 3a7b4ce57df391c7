package routing

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Observer receives pipeline measurements. The metrics package provides the Prometheus one.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	AddSnapRemovals(n int)
	IncConnectorGaps(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) AddSnapRemovals(int)                {}
func (nopObserver) IncConnectorGaps(int)               {}

// Planner runs snapping, ordering and assembly for one set of segments.
type Planner struct {
	log      logrus.FieldLogger
	workers  int
	observer Observer
}

type PlannerOption func(*Planner)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) PlannerOption {
	return func(p *Planner) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithWorkers bounds the number of concurrent snapping and cost-matrix tasks.
func WithWorkers(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.workers = n
		}
	}
}

func NewPlanner(log logrus.FieldLogger, opts ...PlannerOption) *Planner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Planner{log: log, workers: 4, observer: nopObserver{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan snaps every segment onto graph, orders the segments and assembles the route.
func (p *Planner) Plan(ctx context.Context, graph *Graph, segments []Segment) (*AssembledRoute, error) {
	if len(segments) == 0 {
		return nil, newValidationError("segments", "no segments supplied")
	}
	if graph == nil || len(graph.Nodes) == 0 {
		return nil, ErrNoNodesFound
	}

	log := p.log.WithField("segments", len(segments))
	log.WithFields(logrus.Fields{
		"nodes": len(graph.Nodes),
		"edges": graph.EdgeCount(),
	}).Info("=== Starting route planning ===")

	log.Info("Step 1: Snapping segments to road network...")
	started := time.Now()
	snapped, err := p.snapAll(ctx, graph, segments)
	p.observer.ObserveStage("snap", time.Since(started))
	if err != nil {
		return nil, wrapStage("snap", err)
	}

	paths := make([][]int64, len(snapped))
	removed := 0
	for i, r := range snapped {
		paths[i] = r.Path
		removed += r.Removed
	}
	p.observer.AddSnapRemovals(removed)
	log.WithField("removed_nodes", removed).Info("Segments snapped")

	log.Info("Step 2: Building cost matrix...")
	started = time.Now()
	matrix, err := BuildCostMatrix(ctx, graph, paths, p.workers)
	p.observer.ObserveStage("cost_matrix", time.Since(started))
	if err != nil {
		return nil, wrapStage("cost_matrix", err)
	}

	log.Info("Step 3: Choosing visit order...")
	started = time.Now()
	order, total := OrderSegments(matrix)
	p.observer.ObserveStage("order", time.Since(started))
	if isInf(total) {
		log.WithField("order", order).Warn("Visit order contains unreachable transitions, route is disconnected")
	} else {
		log.WithFields(logrus.Fields{"order": order, "total_distance": total}).Info("Visit order chosen")
	}

	log.Info("Step 4: Assembling route...")
	started = time.Now()
	route, err := AssembleRoute(graph, segments, paths, order, total)
	p.observer.ObserveStage("assemble", time.Since(started))
	if err != nil {
		return nil, wrapStage("assemble", err)
	}

	for _, gap := range route.ConnectorGaps {
		log.WithFields(logrus.Fields{
			"from_segment": gap.FromSegment,
			"to_segment":   gap.ToSegment,
		}).Warn(gap.String())
	}
	p.observer.IncConnectorGaps(len(route.ConnectorGaps))

	log.WithFields(logrus.Fields{
		"points":          len(route.Path),
		"connector_gaps":  len(route.ConnectorGaps),
		"segments_length": route.SegmentsLength,
	}).Info("=== Route planning completed ===")

	return route, nil
}

// snapAll snaps each segment on the worker pool. Results land in their own slot, so the
// outcome does not depend on scheduling.
func (p *Planner) snapAll(ctx context.Context, graph *Graph, segments []Segment) ([]*SnapResult, error) {
	results := make([]*SnapResult, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range segments {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seg := segments[i]
			res, err := SnapPath(graph, seg.Points, p.log.WithField("segment", seg.ID))
			if err != nil {
				var verr *ValidationError
				if errors.As(err, &verr) {
					verr.Field = "segment " + string(seg.ID)
				}
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
