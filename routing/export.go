package routing

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tkrajina/gpxgo/gpx"
)

func toLineString(coords []Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		ls = append(ls, orb.Point{c.Lon, c.Lat})
	}
	return ls
}

// ToGeoJSON renders the route as a FeatureCollection: one feature for the whole route
// followed by one feature per segment carrying its display properties.
func (r *AssembledRoute) ToGeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	route := geojson.NewFeature(toLineString(r.Path))
	route.Properties["kind"] = "route"
	route.Properties["optimal_order"] = r.Order
	route.Properties["segments_length"] = r.SegmentsLength
	route.Properties["disconnected"] = r.Disconnected()
	if !r.Disconnected() {
		route.Properties["total_distance"] = r.TotalDistance
	}
	fc.Append(route)

	for _, info := range r.Segments {
		f := geojson.NewFeature(toLineString(r.Path[info.StartIdx : info.EndIdx+1]))
		f.ID = string(info.ID)
		f.Properties["kind"] = "segment"
		f.Properties["id"] = string(info.ID)
		f.Properties["name"] = info.Name
		f.Properties["order"] = info.Order
		f.Properties["color"] = info.Color
		f.Properties["stroke"] = info.Color
		fc.Append(f)
	}

	return fc.MarshalJSON()
}

// ToGPX renders the route as a single GPX track with a waypoint at the start of each segment.
func (r *AssembledRoute) ToGPX(name string) ([]byte, error) {
	g := &gpx.GPX{
		Version: "1.1",
		Creator: "segment-router",
		Name:    name,
	}

	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(r.Path))}
	for _, c := range r.Path {
		seg.Points = append(seg.Points, gpx.GPXPoint{
			Point: gpx.Point{Latitude: c.Lat, Longitude: c.Lon},
		})
	}
	g.Tracks = append(g.Tracks, gpx.GPXTrack{
		Name:     name,
		Segments: []gpx.GPXTrackSegment{seg},
	})

	for _, info := range r.Segments {
		start := r.Path[info.StartIdx]
		label := info.Name
		if label == "" {
			label = fmt.Sprintf("Segment %s", info.ID)
		}
		g.Waypoints = append(g.Waypoints, gpx.GPXPoint{
			Point:       gpx.Point{Latitude: start.Lat, Longitude: start.Lon},
			Name:        fmt.Sprintf("%d. %s", info.Order+1, label),
			Description: string(info.ID),
		})
	}

	return g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
