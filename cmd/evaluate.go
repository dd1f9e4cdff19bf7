package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/safewalk/safewalk-cli/internal/proj"
	"github.com/safewalk/safewalk-cli/internal/route"
	"github.com/safewalk/safewalk-cli/pkg/geocode"
)

var (
	evalPairsPath string
	evalTime      string
	evalFormat    string
	evalOut       string
)

// yamlEndpoint is one endpoint in a pairs file: either coordinates or a
// free-form query to geocode.
type yamlEndpoint struct {
	Lat   float64 `yaml:"lat"`
	Lon   float64 `yaml:"lon"`
	Query string  `yaml:"query"`
}

type yamlPair struct {
	Name  string       `yaml:"name"`
	Start yamlEndpoint `yaml:"start"`
	End   yamlEndpoint `yaml:"end"`
}

type pairsFile struct {
	Pairs []yamlPair `yaml:"pairs"`
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare safest vs shortest routes over a batch of endpoint pairs",
	Long: `Reads (start, end) pairs from a YAML file, runs the safest-route search
and the pure-distance baseline for each, and reports distance increase,
risk reduction, and exposure reduction per pair. A pair that fails (no
path, endpoint too far from the graph) is recorded and never aborts the
batch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		hour, err := parseQueryHour(evalTime)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(evalPairsPath)
		if err != nil {
			return eris.Wrap(err, "read pairs file")
		}
		var pf pairsFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return eris.Wrap(err, "parse pairs file")
		}
		if len(pf.Pairs) == 0 {
			return eris.New("pairs file holds no pairs")
		}

		g, p, err := loadGraphAndProjector()
		if err != nil {
			return err
		}

		gc, err := newGeocoder(ctx)
		if err != nil {
			return err
		}

		pairs := make([]route.Pair, 0, len(pf.Pairs))
		for _, yp := range pf.Pairs {
			start, err := planarEndpoint(ctx, gc, p, yp.Start)
			if err != nil {
				return eris.Wrapf(err, "pair %q start", yp.Name)
			}
			end, err := planarEndpoint(ctx, gc, p, yp.End)
			if err != nil {
				return eris.Wrapf(err, "pair %q end", yp.Name)
			}
			pairs = append(pairs, route.Pair{Name: yp.Name, Start: start, End: end})
		}

		events, err := loadEvents(ctx, p)
		if err != nil {
			return err
		}
		surface, err := buildSurface(events, hour)
		if err != nil {
			return err
		}
		if err := assignRisk(ctx, g, surface, false); err != nil {
			return err
		}

		report, err := route.Evaluate(ctx, g, pairs, routeWeights(), route.EvalOptions{
			Route:         routeOptions(),
			SnapMaxMeters: cfg.Route.SnapMaxMeters,
		})
		if err != nil {
			return err
		}

		zap.L().Info("evaluation complete",
			zap.String("run_id", report.RunID),
			zap.Int("successes", report.Successes),
			zap.Int("failures", report.Failures),
		)

		out := os.Stdout
		if evalOut != "" {
			f, err := os.Create(evalOut)
			if err != nil {
				return eris.Wrap(err, "create report file")
			}
			defer f.Close()
			out = f
		}

		switch evalFormat {
		case "json":
			return report.WriteJSON(out)
		case "csv":
			return report.WriteCSV(out)
		default:
			return eris.Errorf("unknown report format %q (json or csv)", evalFormat)
		}
	},
}

// planarEndpoint resolves one YAML endpoint to planar coordinates. The
// geocoder only runs when no literal coordinates were given.
func planarEndpoint(ctx context.Context, gc *geocode.Client, p *proj.Projector, ep yamlEndpoint) (route.Endpoint, error) {
	lat, lon := ep.Lat, ep.Lon
	label := ep.Query
	if lat == 0 && lon == 0 {
		if ep.Query == "" {
			return route.Endpoint{}, eris.New("endpoint needs lat/lon or a query")
		}
		var err error
		lat, lon, err = resolveQuery(ctx, gc, ep.Query)
		if err != nil {
			return route.Endpoint{}, err
		}
	}
	x, y, err := p.ToPlanar(lon, lat)
	if err != nil {
		return route.Endpoint{}, err
	}
	return route.Endpoint{X: x, Y: y, Label: label}, nil
}

func init() {
	evaluateCmd.Flags().StringVar(&evalPairsPath, "pairs", "", "YAML file of endpoint pairs (required)")
	evaluateCmd.Flags().StringVar(&evalTime, "time", "", "time of day HH or HH:MM (default now)")
	evaluateCmd.Flags().StringVar(&evalFormat, "format", "json", "report format: json or csv")
	evaluateCmd.Flags().StringVar(&evalOut, "out", "", "report file (default stdout)")
	_ = evaluateCmd.MarkFlagRequired("pairs")

	rootCmd.AddCommand(evaluateCmd)
}
