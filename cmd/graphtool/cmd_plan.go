package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/colinandrus/StravaRouter/network"
	"github.com/colinandrus/StravaRouter/routing"
)

// planSummary is the yaml form of a planned route; the full point list is left out.
type planSummary struct {
	TotalDistance  *float64       `yaml:"total_distance"`
	Disconnected   bool           `yaml:"disconnected"`
	SegmentsLength float64        `yaml:"segments_length"`
	PointCount     int            `yaml:"point_count"`
	Order          []int          `yaml:"order"`
	Segments       []summaryEntry `yaml:"segments"`
	ConnectorGaps  []string       `yaml:"connector_gaps,omitempty"`
}

type summaryEntry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name,omitempty"`
	Order int    `yaml:"order"`
	Start int    `yaml:"start_idx"`
	End   int    `yaml:"end_idx"`
}

func summarize(route *routing.AssembledRoute) planSummary {
	resp := routing.PrepareBestPathResponse(route)
	s := planSummary{
		TotalDistance:  resp.TotalDistance,
		Disconnected:   resp.Disconnected,
		SegmentsLength: resp.SegmentsLength,
		PointCount:     len(resp.Path),
		Order:          resp.OptimalOrder,
	}
	for _, info := range resp.Segments {
		s.Segments = append(s.Segments, summaryEntry{
			ID:    string(info.ID),
			Name:  info.Name,
			Order: info.Order,
			Start: info.StartIdx,
			End:   info.EndIdx,
		})
	}
	for _, gap := range resp.ConnectorGaps {
		s.ConnectorGaps = append(s.ConnectorGaps, gap.String())
	}
	return s
}

func writeRoute(w io.Writer, route *routing.AssembledRoute, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routing.PrepareBestPathResponse(route))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summarize(route)); err != nil {
			return err
		}
		return enc.Close()
	case "gpx":
		data, err := route.ToGPX("Segment route")
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "geojson":
		data, err := route.ToGeoJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (want json|yaml|gpx|geojson)", format)
	}
}

func newPlanCmd() *cobra.Command {
	var (
		graphPath    string
		segmentsPath string
		format       string
		outputPath   string
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a route through segments over a local road network",
		Long: `Snap the segments onto a road network file, order them with the nearest
neighbour heuristic and write the assembled route. Segments may be a best-path
request body, a JSON array of segments or a GPX file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			if graphPath == "" || segmentsPath == "" {
				return fmt.Errorf("--graph and --segments are required")
			}
			switch format {
			case "json", "yaml", "gpx", "geojson":
			default:
				return fmt.Errorf("unknown format %q (want json|yaml|gpx|geojson)", format)
			}

			graph, err := network.LoadGraphFromFile(graphPath)
			if err != nil {
				return err
			}
			segments, err := readSegments(segmentsPath)
			if err != nil {
				return err
			}

			planner := routing.NewPlanner(log, routing.WithWorkers(workers))
			route, err := planner.Plan(cmd.Context(), graph, segments)
			if err != nil {
				return err
			}

			if outputPath == "" || outputPath == "-" {
				return writeRoute(cmd.OutOrStdout(), route, format)
			}
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			if err := writeRoute(f, route, format); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.WithField("output", outputPath).Info("Route written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "Road network file (.json or .gob)")
	cmd.Flags().StringVarP(&segmentsPath, "segments", "s", "", "Segments file (.json or .gpx)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json|yaml|gpx|geojson")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Concurrent cost matrix workers")

	return cmd
}
