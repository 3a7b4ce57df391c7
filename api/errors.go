package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colinandrus/StravaRouter/routing"
	"github.com/colinandrus/StravaRouter/strava"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeValidationError    = "validation_error"
	ErrCodeNoRoadNetwork      = "no_road_network"
	ErrCodeNoPathFound        = "no_path_found"
	ErrCodeUpstreamError      = "upstream_error"
	ErrCodeSourceUnavailable  = "segment_source_unavailable"
	ErrCodeArchiveUnavailable = "archive_unavailable"
	ErrCodeInternalError      = "internal_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func (h *Handler) respondError(c *gin.Context, status int, code, message string) {
	h.metrics.HTTPErrors.WithLabelValues(code).Inc()

	resp := gin.H{
		"error": message,
		"code":  code,
	}
	if rid := c.GetString(RequestIDKey); rid != "" {
		resp["request_id"] = rid
	}
	c.AbortWithStatusJSON(status, resp)
}

// classify maps a domain error onto a status, an error code and a client message.
func classify(err error) (int, string, string) {
	var verr *routing.ValidationError
	var serr *strava.StatusError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrCodeValidationError, verr.Error()
	case errors.Is(err, routing.ErrNoNodesFound):
		return http.StatusNotFound, ErrCodeNoRoadNetwork, "No road network found in this area"
	case errors.Is(err, routing.ErrNoPathFound):
		return http.StatusNotFound, ErrCodeNoPathFound, "No path found"
	case errors.Is(err, strava.ErrNotConfigured):
		return http.StatusServiceUnavailable, ErrCodeSourceUnavailable, "Segment search is not configured"
	case errors.As(err, &serr):
		return http.StatusBadGateway, ErrCodeUpstreamError, serr.Error()
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, err.Error()
	}
}

func (h *Handler) respondDomainError(c *gin.Context, err error) {
	status, code, message := classify(err)
	entry := h.log.WithError(err).WithField(RequestIDKey, c.GetString(RequestIDKey))
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	h.respondError(c, status, code, message)
}
