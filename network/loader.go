package network

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/colinandrus/StravaRouter/routing"
)

// OSMnxGraph is the node-link JSON written by OSMnx / networkx.
type OSMnxGraph struct {
	Metadata struct {
		GeneratedAt string `json:"generated_at"`
		Title       string `json:"title"`
		NodeCount   int    `json:"node_count"`
		EdgeCount   int    `json:"edge_count"`
	} `json:"metadata"`
	Graph struct {
		Directed   bool        `json:"directed"`
		Multigraph bool        `json:"multigraph"`
		Nodes      []OSMnxNode `json:"nodes"`
		Links      []OSMnxEdge `json:"links"`
	} `json:"graph"`
}

type OSMnxNode struct {
	Y   float64     `json:"y"`
	X   float64     `json:"x"`
	Lon float64     `json:"lon"`
	Lat float64     `json:"lat"`
	ID  interface{} `json:"id"` // Can be int64 or string
}

type OSMnxEdge struct {
	Name     interface{} `json:"name"` // Can be string or array
	Length   float64     `json:"length"`
	Source   interface{} `json:"source"` // Can be int64 or string
	Target   interface{} `json:"target"` // Can be int64 or string
	Oneway   interface{} `json:"oneway"` // Can be bool or array
	Highway  interface{} `json:"highway"`
	Distance float64     `json:"distance_m"`
}

func convertID(id interface{}) (int64, error) {
	switch v := id.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", id)
	}
}

func convertToString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, fmt.Sprintf("%v", e))
		}
		return strings.Join(parts, ",")
	case json.Number:
		return v.String()
	default:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	}
}

// DecodeOSMnxJSON builds a routing graph from OSMnx node-link JSON. Undirected graphs get
// an edge in each direction. Links without a length fall back to the great-circle length.
func DecodeOSMnxJSON(r io.Reader) (*routing.Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw OSMnxGraph
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse graph JSON: %w", err)
	}

	graph := routing.NewGraph()
	for _, n := range raw.Graph.Nodes {
		id, err := convertID(n.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to convert node ID (%v): %w", n.ID, err)
		}
		lat, lon := n.Lat, n.Lon
		if lat == 0 && lon == 0 {
			lat, lon = n.Y, n.X
		}
		graph.AddNode(id, lat, lon)
	}

	for _, e := range raw.Graph.Links {
		from, err := convertID(e.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to convert source ID (%v): %w", e.Source, err)
		}
		to, err := convertID(e.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to convert target ID (%v): %w", e.Target, err)
		}
		a, okA := graph.NodeCoordinate(from)
		b, okB := graph.NodeCoordinate(to)
		if !okA || !okB {
			continue
		}

		length := e.Length
		if length <= 0 {
			length = e.Distance
		}
		if length <= 0 {
			length = routing.HaversineDistance(a, b)
		}

		name := convertToString(e.Name)
		if raw.Graph.Directed {
			graph.AddEdge(from, to, length, name)
		} else {
			graph.AddRoad(from, to, length, name)
		}
	}

	return graph, nil
}

// EncodeGob writes graph in the gob format read by LoadGraphFromFile.
func EncodeGob(w io.Writer, graph *routing.Graph) error {
	return gob.NewEncoder(w).Encode(graph)
}

func decodeGob(r io.Reader) (*routing.Graph, error) {
	var graph routing.Graph
	if err := gob.NewDecoder(r).Decode(&graph); err != nil {
		return nil, fmt.Errorf("failed to decode gob graph: %w", err)
	}
	if graph.Nodes == nil {
		graph.Nodes = make(map[int64]*routing.Node)
	}
	if graph.Edges == nil {
		graph.Edges = make(map[int64][]*routing.Edge)
	}
	return &graph, nil
}

// LoadGraphFromFile reads a graph stored as OSMnx JSON (.json) or gob (.gob).
func LoadGraphFromFile(path string) (*routing.Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open graph file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		return decodeGob(file)
	case ".json":
		return DecodeOSMnxJSON(file)
	default:
		return nil, fmt.Errorf("unsupported graph file extension %q (want .json or .gob)", filepath.Ext(path))
	}
}

// ConvertJSONToGob converts an OSMnx JSON graph file into a gob file.
func ConvertJSONToGob(inputPath, outputPath string) (*routing.Graph, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file %s: %w", inputPath, err)
	}
	defer f.Close()

	graph, err := DecodeOSMnxJSON(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", inputPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory for %s: %w", outputPath, err)
	}
	gobFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create GOB file %s: %w", outputPath, err)
	}
	defer gobFile.Close()

	if err := EncodeGob(gobFile, graph); err != nil {
		return nil, fmt.Errorf("failed to encode GOB to %s: %w", outputPath, err)
	}
	return graph, nil
}
