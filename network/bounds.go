package network

import (
	"github.com/paulmach/orb"

	"github.com/colinandrus/StravaRouter/routing"
)

// SegmentBounds returns the bounding box of every point in segments. ok is false when
// there are no points.
func SegmentBounds(segments []routing.Segment) (orb.Bound, bool) {
	var mp orb.MultiPoint
	for _, seg := range segments {
		for _, p := range seg.Points {
			mp = append(mp, orb.Point{p.Lon, p.Lat})
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}, false
	}
	return mp.Bound(), true
}

// BoxBounds converts a southwest/northeast request box into an orb.Bound, normalising
// corners given in the wrong order.
func BoxBounds(b routing.Bounds) orb.Bound {
	return orb.MultiPoint{
		{b.SouthWest.Lon, b.SouthWest.Lat},
		{b.NorthEast.Lon, b.NorthEast.Lat},
	}.Bound()
}
