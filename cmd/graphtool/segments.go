package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/colinandrus/StravaRouter/routing"
)

// readSegments loads segments from a best-path request body, a bare JSON array of
// segments, or a GPX file where every track segment becomes one segment.
func readSegments(path string) ([]routing.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading segments: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".gpx") {
		return segmentsFromGPX(data)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var segments []routing.Segment
		if err := json.Unmarshal(data, &segments); err != nil {
			return nil, fmt.Errorf("decoding segments: %w", err)
		}
		return segments, nil
	}
	var req routing.BestPathRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding segments: %w", err)
	}
	return req.Segments, nil
}

func segmentsFromGPX(data []byte) ([]routing.Segment, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing gpx: %w", err)
	}

	var segments []routing.Segment
	for ti, track := range doc.Tracks {
		for si, ts := range track.Segments {
			points := make([]routing.Coordinate, 0, len(ts.Points))
			for _, p := range ts.Points {
				points = append(points, routing.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
			}
			id := strconv.Itoa(ti + 1)
			name := track.Name
			if len(track.Segments) > 1 {
				id = fmt.Sprintf("%d.%d", ti+1, si+1)
				if name != "" {
					name = fmt.Sprintf("%s (%d)", name, si+1)
				}
			}
			segments = append(segments, routing.Segment{ID: routing.SegmentID(id), Name: name, Points: points})
		}
	}
	return segments, nil
}
