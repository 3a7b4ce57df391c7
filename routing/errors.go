package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNodesFound means the road network has no nodes at all, or none near the requested geometry.
	ErrNoNodesFound = errors.New("no road network nodes found")

	// ErrNoPathFound means two required points are not connected.
	ErrNoPathFound = errors.New("no path found")
)

// ValidationError reports malformed or insufficient input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ComputationError wraps an unanticipated failure inside the planning pipeline.
type ComputationError struct {
	Stage string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("route computation failed during %s: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// wrapStage keeps typed failures intact and wraps anything else as a ComputationError.
func wrapStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	var cerr *ComputationError
	if errors.As(err, &verr) || errors.As(err, &cerr) ||
		errors.Is(err, ErrNoNodesFound) || errors.Is(err, ErrNoPathFound) {
		return err
	}
	return &ComputationError{Stage: stage, Err: err}
}

// ConnectorGapWarning records that no on-network path joined two consecutive segments
// and a straight bridge was used instead. It is not an error.
type ConnectorGapWarning struct {
	FromSegment string     `json:"from_segment"`
	ToSegment   string     `json:"to_segment"`
	FromNode    int64      `json:"from_node"`
	ToNode      int64      `json:"to_node"`
	From        Coordinate `json:"from"`
	To          Coordinate `json:"to"`
}

func (w ConnectorGapWarning) String() string {
	return fmt.Sprintf("no network path from node %d to node %d, using straight bridge", w.FromNode, w.ToNode)
}
