package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safewalk/safewalk-cli/internal/proj"
	"github.com/safewalk/safewalk-cli/internal/route"
)

var (
	routeFrom string
	routeTo   string
	routeTime string
	routeJSON bool
)

// routeResult is the printable outcome of a single query. Coordinates are
// geographic (lat, lon) for map display.
type routeResult struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Hour        int          `json:"hour"`
	Coords      [][2]float64 `json:"coords"`
	LengthM     float64      `json:"length_m"`
	Risk        float64      `json:"risk"`
	Cost        float64      `json:"cost"`
	WalkMinutes float64      `json:"walk_minutes"`
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Find the safest walking route between two places",
	Long: `Resolves both endpoints (addresses, place names, or literal "lat,lon"
pairs), weights the street graph against the crime-risk surface for the
query hour, and prints the minimum-cost route.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("route"); err != nil {
			return err
		}

		hour, err := parseQueryHour(routeTime)
		if err != nil {
			return err
		}

		g, p, err := loadGraphAndProjector()
		if err != nil {
			return err
		}

		gc, err := newGeocoder(ctx)
		if err != nil {
			return err
		}
		fromLat, fromLon, err := resolveQuery(ctx, gc, routeFrom)
		if err != nil {
			return err
		}
		toLat, toLon, err := resolveQuery(ctx, gc, routeTo)
		if err != nil {
			return err
		}

		events, err := loadEvents(ctx, p)
		if err != nil {
			return err
		}
		surface, err := buildSurface(events, hour)
		if err != nil {
			return err
		}
		if err := assignRisk(ctx, g, surface, !routeJSON); err != nil {
			return err
		}

		start, err := snapEndpoint(g, p, fromLat, fromLon)
		if err != nil {
			return err
		}
		end, err := snapEndpoint(g, p, toLat, toLon)
		if err != nil {
			return err
		}

		r, err := route.Find(g, start, end, routeWeights(), routeOptions())
		if err != nil {
			return err
		}

		zap.L().Info("route found",
			zap.Int("hour", hour),
			zap.Float64("length_m", r.Length),
			zap.Float64("risk", r.Risk),
			zap.Int("edges", len(r.EdgeIDs)),
		)

		result, err := newRouteResult(r, p, hour)
		if err != nil {
			return err
		}
		return printRouteResult(result, routeJSON)
	},
}

func newRouteResult(r *route.Route, p *proj.Projector, hour int) (*routeResult, error) {
	coords := make([][2]float64, 0, len(r.Coords))
	for _, c := range r.Coords {
		lon, lat, err := p.ToGeographic(c[0], c[1])
		if err != nil {
			return nil, err
		}
		coords = append(coords, [2]float64{lat, lon})
	}
	return &routeResult{
		From:        routeFrom,
		To:          routeTo,
		Hour:        hour,
		Coords:      coords,
		LengthM:     r.Length,
		Risk:        r.Risk,
		Cost:        r.Cost,
		WalkMinutes: r.WalkMinutes(),
	}, nil
}

func printRouteResult(result *routeResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("route %s -> %s (hour %02d)\n", result.From, result.To, result.Hour)
	fmt.Printf("  length: %.0f m (~%.0f min walk)\n", result.LengthM, result.WalkMinutes)
	fmt.Printf("  risk:   %.4f\n", result.Risk)
	fmt.Printf("  cost:   %.2f\n", result.Cost)
	for _, c := range result.Coords {
		fmt.Printf("  %.6f,%.6f\n", c[0], c[1])
	}
	return nil
}

// parseQueryHour accepts "HH", "HH:MM", or empty for the current hour.
func parseQueryHour(s string) (int, error) {
	if s == "" {
		return time.Now().Hour(), nil
	}
	hourPart := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hourPart = s[:i]
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return 0, eris.Errorf("invalid time %q (use HH or HH:MM)", s)
	}
	return hour, nil
}

func init() {
	routeCmd.Flags().StringVar(&routeFrom, "from", "", `start address or "lat,lon" (required)`)
	routeCmd.Flags().StringVar(&routeTo, "to", "", `end address or "lat,lon" (required)`)
	routeCmd.Flags().StringVar(&routeTime, "time", "", "time of day HH or HH:MM (default now)")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "print JSON instead of text")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(routeCmd)
}
