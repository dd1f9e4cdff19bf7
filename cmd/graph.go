package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safewalk/safewalk-cli/internal/graph"
	"github.com/safewalk/safewalk-cli/internal/proj"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build, export, and inspect the street graph",
}

var (
	graphShapefile string
	graphNodeLink  string
	graphZone      int
	graphSouth     bool
)

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the street graph from a shapefile or node-link JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("graph"); err != nil {
			return err
		}
		if (graphShapefile == "") == (graphNodeLink == "") {
			return eris.New("exactly one of --shapefile or --nodelink is required")
		}

		var (
			g      *graph.Graph
			p      *proj.Projector
			source string
			err    error
		)
		switch {
		case graphShapefile != "":
			source = graphShapefile
			p, err = projectorForShapefile(graphShapefile)
			if err != nil {
				return err
			}
			g, err = graph.FromShapefile(graphShapefile, p)
			if err != nil {
				return err
			}
		default:
			// Node-link coordinates are already planar; the zone flag says
			// which plane, so later queries project onto the same one.
			if graphZone == 0 {
				return eris.New("--zone is required with --nodelink")
			}
			source = graphNodeLink
			p, err = proj.New(graphZone, graphSouth)
			if err != nil {
				return err
			}
			f, openErr := os.Open(graphNodeLink)
			if openErr != nil {
				return eris.Wrap(openErr, "open node-link file")
			}
			defer f.Close()
			g, err = graph.FromNodeLink(f)
			if err != nil {
				return err
			}
		}

		if err := os.MkdirAll(cfg.Graph.CacheDir, 0o755); err != nil {
			return eris.Wrap(err, "create cache dir")
		}
		if err := g.SaveGob(graphCachePath()); err != nil {
			return err
		}
		if err := saveGraphMeta(graphMeta{
			Zone:    p.Zone(),
			South:   p.South(),
			Source:  source,
			BuiltAt: time.Now().UTC(),
			Nodes:   g.NodeCount(),
			Edges:   g.EdgeCount(),
		}); err != nil {
			return err
		}

		zap.L().Info("graph built",
			zap.String("source", source),
			zap.Int("zone", p.Zone()),
			zap.Int("nodes", g.NodeCount()),
			zap.Int("edges", g.EdgeCount()),
		)
		return nil
	},
}

var (
	graphExportFormat string
	graphExportOut    string
)

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the cached graph as node-link JSON or GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		g, _, err := loadGraphAndProjector()
		if err != nil {
			return err
		}

		out := os.Stdout
		if graphExportOut != "" {
			f, err := os.Create(graphExportOut)
			if err != nil {
				return eris.Wrap(err, "create export file")
			}
			defer f.Close()
			out = f
		}

		switch graphExportFormat {
		case "nodelink":
			return g.WriteNodeLink(out)
		case "geojson":
			return g.WriteGeoJSON(out)
		default:
			return eris.Errorf("unknown export format %q (nodelink or geojson)", graphExportFormat)
		}
	},
}

var graphStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached graph's provenance and size",
	RunE: func(cmd *cobra.Command, _ []string) error {
		meta, err := loadGraphMeta()
		if err != nil {
			return err
		}
		hemisphere := "N"
		if meta.South {
			hemisphere = "S"
		}
		fmt.Printf("source:  %s\n", meta.Source)
		fmt.Printf("zone:    %d%s\n", meta.Zone, hemisphere)
		fmt.Printf("built:   %s\n", meta.BuiltAt.Format(time.RFC3339))
		fmt.Printf("nodes:   %d\n", meta.Nodes)
		fmt.Printf("edges:   %d\n", meta.Edges)
		return nil
	},
}

func init() {
	graphBuildCmd.Flags().StringVar(&graphShapefile, "shapefile", "", "street-centerline shapefile (WGS84 polylines)")
	graphBuildCmd.Flags().StringVar(&graphNodeLink, "nodelink", "", "node-link JSON graph (planar coordinates)")
	graphBuildCmd.Flags().IntVar(&graphZone, "zone", 0, "UTM zone of node-link coordinates")
	graphBuildCmd.Flags().BoolVar(&graphSouth, "south", false, "node-link coordinates are in the southern hemisphere")

	graphExportCmd.Flags().StringVar(&graphExportFormat, "format", "geojson", "export format: nodelink or geojson")
	graphExportCmd.Flags().StringVar(&graphExportOut, "out", "", "output file (default stdout)")

	graphCmd.AddCommand(graphBuildCmd, graphExportCmd, graphStatusCmd)
	rootCmd.AddCommand(graphCmd)
}
