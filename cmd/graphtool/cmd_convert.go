package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/colinandrus/StravaRouter/network"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <graph.json> [graph.gob]",
		Short: "Convert an OSMnx JSON road network to the binary graph format",
		Long: `Convert an OSMnx node-link JSON export into a gob encoded graph that the
server loads at start-up through GRAPH_FILE. The output defaults to the input
path with a .gob extension.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			in := args[0]
			out := strings.TrimSuffix(in, ".json") + ".gob"
			if len(args) == 2 {
				out = args[1]
			}
			if in == out {
				return fmt.Errorf("output path %q would overwrite the input", out)
			}

			log.WithField("input", in).Info("Converting road network")
			graph, err := network.ConvertJSONToGob(in, out)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"output": out,
				"nodes":  len(graph.Nodes),
				"edges":  graph.EdgeCount(),
			}).Info("Road network written")
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d edges\n", out, len(graph.Nodes), graph.EdgeCount())
			return nil
		},
	}
}
