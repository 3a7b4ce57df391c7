package network

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/sirupsen/logrus"

	"github.com/colinandrus/StravaRouter/routing"
)

// GraphProvider supplies the road network covering a bounding box.
type GraphProvider interface {
	Graph(ctx context.Context, bounds orb.Bound) (*routing.Graph, error)
}

const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// Highway values a runner cannot use.
const excludedHighways = "motorway|motorway_link|trunk|trunk_link|construction|proposed|abandoned|raceway|bus_guideway"

type OverpassConfig struct {
	URL     string
	Timeout time.Duration
	Padding float64 // degrees added on every side of the requested bounds
}

// OverpassClient fetches walkable ways from an Overpass API endpoint.
type OverpassClient struct {
	cfg    OverpassConfig
	client *http.Client
	log    logrus.FieldLogger
}

func NewOverpassClient(cfg OverpassConfig, log logrus.FieldLogger) *OverpassClient {
	if cfg.URL == "" {
		cfg.URL = DefaultOverpassURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OverpassClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// Query returns the Overpass QL used for a bounding box.
func (c *OverpassClient) Query(bounds orb.Bound) string {
	b := bounds.Pad(c.cfg.Padding)
	bbox := fmt.Sprintf("%f,%f,%f,%f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	return fmt.Sprintf(`[out:xml][timeout:%d];
(
  way["highway"]["highway"!~"^(%s)$"]["access"!~"^(private|no)$"]["foot"!="no"](%s);
);
out body;
>;
out skel qt;`, int(c.cfg.Timeout.Seconds()), excludedHighways, bbox)
}

func (c *OverpassClient) Graph(ctx context.Context, bounds orb.Bound) (*routing.Graph, error) {
	started := time.Now()
	query := c.Query(bounds)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL,
		strings.NewReader(url.Values{"data": {query}}.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading overpass response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var data osm.OSM
	if err := xml.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decoding overpass XML: %w", err)
	}

	graph := BuildGraph(&data)
	c.log.WithFields(logrus.Fields{
		"nodes":    len(graph.Nodes),
		"edges":    graph.EdgeCount(),
		"ways":     len(data.Ways),
		"duration": time.Since(started).String(),
	}).Info("Fetched road network from Overpass")
	return graph, nil
}

// BuildGraph turns OSM ways into a routing graph. Every way is walkable in both
// directions, so oneway tags are ignored. Only nodes referenced by a way are kept.
func BuildGraph(data *osm.OSM) *routing.Graph {
	coords := make(map[osm.NodeID]routing.Coordinate, len(data.Nodes))
	for _, n := range data.Nodes {
		coords[n.ID] = routing.Coordinate{Lat: n.Lat, Lon: n.Lon}
	}

	graph := routing.NewGraph()
	for _, way := range data.Ways {
		if way.Tags.Find("highway") == "" {
			continue
		}
		name := way.Tags.Find("name")

		var prev osm.NodeID
		havePrev := false
		for _, wn := range way.Nodes {
			c, ok := coords[wn.ID]
			if !ok {
				havePrev = false
				continue
			}
			graph.AddNode(int64(wn.ID), c.Lat, c.Lon)
			if havePrev && prev != wn.ID {
				length := routing.HaversineDistance(coords[prev], c)
				graph.AddRoad(int64(prev), int64(wn.ID), length, name)
			}
			prev = wn.ID
			havePrev = true
		}
	}
	return graph
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StaticProvider serves one graph loaded at start-up, whatever bounds are requested.
type StaticProvider struct {
	graph *routing.Graph
}

func NewStaticProvider(graph *routing.Graph) *StaticProvider {
	return &StaticProvider{graph: graph}
}

func (p *StaticProvider) Graph(ctx context.Context, _ orb.Bound) (*routing.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.graph == nil {
		return routing.NewGraph(), nil
	}
	return p.graph, nil
}
