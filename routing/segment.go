package routing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Segment is a trail or road polyline to be covered by the route.
type Segment struct {
	ID     SegmentID    `json:"id"`
	Name   string       `json:"name,omitempty"`
	Points []Coordinate `json:"points"`
}

// SegmentID accepts both JSON strings and JSON numbers; Strava ids arrive as numbers.
type SegmentID string

func (id *SegmentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SegmentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("segment id must be a string or number: %w", err)
	}
	*id = SegmentID(n.String())
	return nil
}

// MarshalJSON writes numeric ids back as numbers so clients see the id they sent.
func (id SegmentID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// MarshalJSON writes a coordinate as a [lat, lng] pair.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

// UnmarshalJSON reads either a [lat, lng] pair or a {"lat": .., "lng": ..} object.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty coordinate")
	}

	if data[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("invalid coordinate pair: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("coordinate pair must have 2 values, got %d", len(pair))
		}
		c.Lat, c.Lon = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid coordinate object: %w", err)
	}
	lon := obj.Lng
	if lon == nil {
		lon = obj.Lon
	}
	if obj.Lat == nil || lon == nil {
		return fmt.Errorf("coordinate object needs lat and lng")
	}
	c.Lat, c.Lon = *obj.Lat, *lon
	return nil
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
