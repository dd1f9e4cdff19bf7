package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/safewalk/safewalk-cli/internal/crime"
	"github.com/safewalk/safewalk-cli/internal/graph"
	"github.com/safewalk/safewalk-cli/internal/proj"
	"github.com/safewalk/safewalk-cli/internal/risk"
	"github.com/safewalk/safewalk-cli/internal/route"
	"github.com/safewalk/safewalk-cli/pkg/geocode"
)

const (
	graphCacheFile = "graph.gob"
	graphMetaFile  = "graph.json"
	geocodeDBFile  = "geocode.db"
)

// graphMeta records how the cached graph was built. The projection zone
// must survive between runs so crime events and query endpoints land on the
// same plane as the graph nodes.
type graphMeta struct {
	Zone    int       `json:"zone"`
	South   bool      `json:"south"`
	Source  string    `json:"source"`
	BuiltAt time.Time `json:"built_at"`
	Nodes   int       `json:"nodes"`
	Edges   int       `json:"edges"`
}

func graphCachePath() string { return filepath.Join(cfg.Graph.CacheDir, graphCacheFile) }
func graphMetaPath() string  { return filepath.Join(cfg.Graph.CacheDir, graphMetaFile) }

func saveGraphMeta(meta graphMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "graph meta: marshal")
	}
	return eris.Wrap(os.WriteFile(graphMetaPath(), data, 0o644), "graph meta: write")
}

func loadGraphMeta() (graphMeta, error) {
	var meta graphMeta
	data, err := os.ReadFile(graphMetaPath())
	if err != nil {
		return meta, eris.Wrap(err, "graph meta: read (run 'safewalk graph build' first)")
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, eris.Wrap(err, "graph meta: parse")
	}
	return meta, nil
}

// loadGraphAndProjector loads the cached graph and reconstructs the
// projector it was built with.
func loadGraphAndProjector() (*graph.Graph, *proj.Projector, error) {
	meta, err := loadGraphMeta()
	if err != nil {
		return nil, nil, err
	}
	p, err := proj.New(meta.Zone, meta.South)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.LoadGob(graphCachePath())
	if err != nil {
		return nil, nil, err
	}
	return g, p, nil
}

// projectorForShapefile picks the UTM zone covering the shapefile's bbox
// center.
func projectorForShapefile(path string) (*proj.Projector, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open shapefile")
	}
	defer r.Close()

	box := r.BBox()
	return proj.ForLonLat((box.MinX+box.MaxX)/2, (box.MinY+box.MaxY)/2)
}

// openStore opens the crime-event store per config.
func openStore(ctx context.Context) (crime.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		store, err := crime.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := crime.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadEvents reads every stored crime record and projects it onto the
// graph's plane. Bucket filtering happens afterwards, against the query
// hour, so all-day records keep counting in every bucket.
func loadEvents(ctx context.Context, p *proj.Projector) ([]risk.Event, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.Records(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		zap.L().Warn("no crime records loaded; risk surface will be zero everywhere")
	}

	return crime.ToEvents(records, p.ToPlanar), nil
}

// buildSurface fits the KDE over the events active at the given hour.
// hour < 0 means all events regardless of bucket.
func buildSurface(events []risk.Event, hour int) (*risk.Surface, error) {
	if hour >= 0 {
		events = risk.FilterBucket(events, hour)
	}
	if cfg.Risk.Bandwidth > 0 {
		return risk.NewSurface(events, cfg.Risk.Bandwidth)
	}
	return risk.NewSurfaceAuto(events)
}

// assignRisk scores every edge against the surface using config options.
func assignRisk(ctx context.Context, g *graph.Graph, s *risk.Surface, progress bool) error {
	return risk.Assign(ctx, g, s, risk.AssignOptions{
		StepMeters: cfg.Risk.Sample.StepMeters,
		Reduce:     risk.Reduction(cfg.Risk.Sample.Reduce),
		Progress:   progress,
	})
}

func routeWeights() route.Weights {
	return route.Weights{Alpha: cfg.Route.Alpha, Beta: cfg.Route.Beta}
}

func routeOptions() route.Options {
	return route.Options{
		MaxExpansions: cfg.Route.MaxExpansions,
		AStar:         cfg.Route.AStar,
	}
}

// newGeocoder builds the provider cascade from config, with the SQLite
// cache under the graph cache dir.
func newGeocoder(ctx context.Context) (*geocode.Client, error) {
	var providers []geocode.Provider
	for _, name := range cfg.Geocode.Providers {
		switch name {
		case "census":
			providers = append(providers, geocode.NewCensusProvider())
		case "nominatim":
			providers = append(providers, geocode.NewNominatimProvider(
				geocode.WithNominatimUserAgent(cfg.Geocode.UserAgent),
			))
		default:
			return nil, eris.Errorf("unknown geocode provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, eris.New("no geocode providers configured")
	}

	var opts []geocode.Option
	if cfg.Geocode.CacheEnabled {
		if err := os.MkdirAll(cfg.Graph.CacheDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "create cache dir")
		}
		db, err := sql.Open("sqlite", filepath.Join(cfg.Graph.CacheDir, geocodeDBFile))
		if err != nil {
			return nil, eris.Wrap(err, "open geocode cache")
		}
		cache := geocode.NewCache(db, cfg.Geocode.CacheTTLDays)
		if err := cache.Migrate(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, geocode.WithCache(cache))
	}

	return geocode.NewClient(providers, opts...), nil
}

// resolveQuery turns an endpoint argument into geographic coordinates. A
// literal "lat,lon" pair skips geocoding.
func resolveQuery(ctx context.Context, gc *geocode.Client, s string) (lat, lon float64, err error) {
	if lat, lon, ok := parseLatLonLiteral(s); ok {
		return lat, lon, nil
	}
	result, err := gc.Geocode(ctx, s)
	if err != nil {
		return 0, 0, err
	}
	if !result.Matched {
		return 0, 0, eris.Errorf("could not geocode %q", s)
	}
	zap.L().Debug("geocoded endpoint",
		zap.String("query", s),
		zap.String("source", result.Source),
		zap.Float64("lat", result.Latitude),
		zap.Float64("lon", result.Longitude),
	)
	return result.Latitude, result.Longitude, nil
}

func parseLatLonLiteral(s string) (lat, lon float64, ok bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// snapEndpoint projects a geographic point and snaps it onto the graph. A
// geodesic coverage check runs first: a geocoder hit in the wrong city may
// not even project into the graph's UTM zone, and the caller should hear
// "too far", not a projection failure.
func snapEndpoint(g *graph.Graph, p *proj.Projector, lat, lon float64) (int64, error) {
	minX, minY, maxX, maxY := g.Bounds()
	cLon, cLat, err := p.ToGeographic((minX+maxX)/2, (minY+maxY)/2)
	if err != nil {
		return 0, err
	}
	cornerLon, cornerLat, err := p.ToGeographic(maxX, maxY)
	if err != nil {
		return 0, err
	}
	radius := route.GreatCircleMeters(cLat, cLon, cornerLat, cornerLon)
	if d := route.GreatCircleMeters(lat, lon, cLat, cLon); d > radius+cfg.Route.SnapMaxMeters {
		return 0, &route.SnapTooFarError{Meters: d - radius, Max: cfg.Route.SnapMaxMeters}
	}

	x, y, err := p.ToPlanar(lon, lat)
	if err != nil {
		return 0, err
	}
	return route.ResolveEndpoint(g, x, y, cfg.Route.SnapMaxMeters)
}
