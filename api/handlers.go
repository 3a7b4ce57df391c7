// Package api serves the route planner over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/colinandrus/StravaRouter/metrics"
	"github.com/colinandrus/StravaRouter/network"
	"github.com/colinandrus/StravaRouter/publisher"
	"github.com/colinandrus/StravaRouter/routing"
	"github.com/colinandrus/StravaRouter/store"
)

// SegmentSource finds segments inside a bounding box.
type SegmentSource interface {
	ExploreSegments(ctx context.Context, bounds routing.Bounds) ([]routing.Segment, error)
}

// RouteArchive persists planned route summaries.
type RouteArchive interface {
	Save(ctx context.Context, summary *store.RouteSummary) error
	Recent(ctx context.Context, limit int) ([]store.RouteSummary, error)
}

// EventPublisher announces planned routes.
type EventPublisher interface {
	PublishRoutePlanned(msg publisher.RoutePlanned) error
}

// Deps holds the collaborators of the HTTP layer. Segments, Archive and Events are optional.
type Deps struct {
	Planner  *routing.Planner
	Network  network.GraphProvider
	Segments SegmentSource
	Archive  RouteArchive
	Events   EventPublisher
	Metrics  *metrics.Collector
	Log      logrus.FieldLogger
}

type Handler struct {
	planner  *routing.Planner
	network  network.GraphProvider
	segments SegmentSource
	archive  RouteArchive
	events   EventPublisher
	metrics  *metrics.Collector
	log      logrus.FieldLogger
	started  time.Time
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}
	if d.Network == nil {
		d.Network = network.NewStaticProvider(nil)
	}
	if d.Planner == nil {
		d.Planner = routing.NewPlanner(d.Log, routing.WithObserver(d.Metrics))
	}
	return &Handler{
		planner:  d.Planner,
		network:  d.Network,
		segments: d.Segments,
		archive:  d.Archive,
		events:   d.Events,
		metrics:  d.Metrics,
		log:      d.Log,
		started:  time.Now(),
	}
}

// UpdateSegments handles POST /update-segments.
func (h *Handler) UpdateSegments(c *gin.Context) {
	var req routing.UpdateSegmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	bounds, err := req.Bounds()
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	if h.segments == nil {
		h.respondError(c, http.StatusServiceUnavailable, ErrCodeSourceUnavailable, "Segment search is not configured")
		return
	}

	h.log.WithFields(logrus.Fields{
		RequestIDKey: c.GetString(RequestIDKey),
		"southwest":  bounds.SouthWest,
		"northeast":  bounds.NorthEast,
	}).Info("Received bounds for segment search")

	segments, err := h.segments.ExploreSegments(c.Request.Context(), bounds)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, segments)
}

// FindPath handles POST /find-path.
func (h *Handler) FindPath(c *gin.Context) {
	var req routing.FindPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Start == nil || req.End == nil {
		h.respondError(c, http.StatusBadRequest, ErrCodeValidationError, "start and end are required")
		return
	}

	path, distance, err := routing.FindSimplePath(req.Segments, *req.Start, *req.End)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, routing.FindPathResponse{Path: path, Distance: distance})
}

// BestPath handles POST /best-path. The optional format query parameter selects
// json (default), gpx or geojson output.
func (h *Handler) BestPath(c *gin.Context) {
	var req routing.BestPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "gpx" && format != "geojson" {
		h.respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "format must be json, gpx or geojson")
		return
	}
	if len(req.Segments) == 0 {
		h.respondError(c, http.StatusBadRequest, ErrCodeValidationError, "No segments provided")
		return
	}
	bounds, ok := network.SegmentBounds(req.Segments)
	if !ok {
		h.respondError(c, http.StatusBadRequest, ErrCodeValidationError, "Segments contain no points")
		return
	}

	ctx := c.Request.Context()
	requestID := c.GetString(RequestIDKey)
	h.metrics.SegmentsPerReq.Observe(float64(len(req.Segments)))

	graph, err := h.network.Graph(ctx, bounds)
	if err != nil {
		h.log.WithError(err).WithField(RequestIDKey, requestID).Error("failed to load road network")
		h.respondError(c, http.StatusBadGateway, ErrCodeUpstreamError, "Failed to load road network: "+err.Error())
		return
	}
	h.metrics.GraphNodes.Observe(float64(len(graph.Nodes)))

	route, err := h.planner.Plan(ctx, graph, req.Segments)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.metrics.RoutesPlanned.Inc()
	h.record(ctx, requestID, req.Segments, route)

	switch format {
	case "gpx":
		data, err := route.ToGPX("Segment route")
		if err != nil {
			h.respondDomainError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="route.gpx"`)
		c.Data(http.StatusOK, "application/gpx+xml", data)
	case "geojson":
		data, err := route.ToGeoJSON()
		if err != nil {
			h.respondDomainError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/geo+json", data)
	default:
		c.JSON(http.StatusOK, routing.PrepareBestPathResponse(route))
	}
}

// record archives and announces a planned route. Failures are logged only.
func (h *Handler) record(ctx context.Context, requestID string, segments []routing.Segment, route *routing.AssembledRoute) {
	if h.archive == nil && h.events == nil {
		return
	}

	ids := make([]string, len(segments))
	for i, s := range segments {
		ids[i] = string(s.ID)
	}
	var total *float64
	if !route.Disconnected() {
		t := route.TotalDistance
		total = &t
	}

	if h.archive != nil {
		summary := &store.RouteSummary{
			RequestID:      requestID,
			SegmentIDs:     ids,
			VisitOrder:     route.Order,
			TotalDistance:  total,
			SegmentsLength: route.SegmentsLength,
			PointCount:     len(route.Path),
			ConnectorGaps:  len(route.ConnectorGaps),
		}
		if err := h.archive.Save(ctx, summary); err != nil {
			h.metrics.ArchiveErrors.Inc()
			h.log.WithError(err).WithField(RequestIDKey, requestID).Warn("failed to archive planned route")
		}
	}

	if h.events != nil {
		_ = h.events.PublishRoutePlanned(publisher.RoutePlanned{
			RequestID:      requestID,
			PlannedAt:      time.Now().UTC(),
			SegmentIDs:     ids,
			VisitOrder:     route.Order,
			TotalDistance:  total,
			SegmentsLength: route.SegmentsLength,
			PointCount:     len(route.Path),
			ConnectorGaps:  len(route.ConnectorGaps),
		})
	}
}

// RecentRoutes handles GET /routes/recent.
func (h *Handler) RecentRoutes(c *gin.Context) {
	if h.archive == nil {
		h.respondError(c, http.StatusServiceUnavailable, ErrCodeArchiveUnavailable, "Route archive is not configured")
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			h.respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	routes, err := h.archive.Recent(c.Request.Context(), limit)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": time.Since(h.started).Seconds(),
		"segment_search": h.segments != nil,
		"route_archive":  h.archive != nil,
		"route_events":   h.events != nil,
	})
}
