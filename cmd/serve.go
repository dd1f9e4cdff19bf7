package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safewalk/safewalk-cli/internal/graph"
	"github.com/safewalk/safewalk-cli/internal/proj"
	"github.com/safewalk/safewalk-cli/internal/risk"
	"github.com/safewalk/safewalk-cli/internal/route"
	"github.com/safewalk/safewalk-cli/pkg/geocode"
)

var servePort int

// routeEngine serves route queries against one loaded graph. Edge risk is
// re-assigned when a request's time bucket differs from the last one, so
// requests serialize on the mutex; the graph is shared state.
type routeEngine struct {
	mu       sync.Mutex
	g        *graph.Graph
	p        *proj.Projector
	events   []risk.Event
	gc       *geocode.Client
	lastHour int
}

func newRouteEngine(ctx context.Context) (*routeEngine, error) {
	g, p, err := loadGraphAndProjector()
	if err != nil {
		return nil, err
	}
	gc, err := newGeocoder(ctx)
	if err != nil {
		return nil, err
	}
	events, err := loadEvents(ctx, p)
	if err != nil {
		return nil, err
	}
	return &routeEngine{g: g, p: p, events: events, gc: gc, lastHour: -1}, nil
}

type routeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Time string `json:"time,omitempty"` // "HH" or "HH:MM"; empty = now
}

type routeResponse struct {
	Hour        int          `json:"hour"`
	Coords      [][2]float64 `json:"coords"` // [lat, lon]
	LengthM     float64      `json:"length_m"`
	Risk        float64      `json:"risk"`
	Cost        float64      `json:"cost"`
	WalkMinutes float64      `json:"walk_minutes"`
}

func (e *routeEngine) solve(ctx context.Context, req routeRequest, hour int) (*routeResponse, error) {
	fromLat, fromLon, err := resolveQuery(ctx, e.gc, req.From)
	if err != nil {
		return nil, err
	}
	toLat, toLon, err := resolveQuery(ctx, e.gc, req.To)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if hour != e.lastHour {
		surface, err := buildSurface(e.events, hour)
		if err != nil {
			return nil, err
		}
		if err := assignRisk(ctx, e.g, surface, false); err != nil {
			return nil, err
		}
		e.lastHour = hour
	}

	start, err := snapEndpoint(e.g, e.p, fromLat, fromLon)
	if err != nil {
		return nil, err
	}
	end, err := snapEndpoint(e.g, e.p, toLat, toLon)
	if err != nil {
		return nil, err
	}

	r, err := route.Find(e.g, start, end, routeWeights(), routeOptions())
	if err != nil {
		return nil, err
	}

	coords := make([][2]float64, 0, len(r.Coords))
	for _, c := range r.Coords {
		lon, lat, err := e.p.ToGeographic(c[0], c[1])
		if err != nil {
			return nil, err
		}
		coords = append(coords, [2]float64{lat, lon})
	}

	return &routeResponse{
		Hour:        hour,
		Coords:      coords,
		LengthM:     r.Length,
		Risk:        r.Risk,
		Cost:        r.Cost,
		WalkMinutes: r.WalkMinutes(),
	}, nil
}

// statusForRouteErr maps domain errors onto HTTP codes.
func statusForRouteErr(err error) int {
	switch err.(type) {
	case *route.NoPathError, *route.SnapTooFarError, *route.BudgetExceededError:
		return http.StatusUnprocessableEntity
	case *route.InvalidNodeError, *route.InvalidParameterError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newRouter(engine *routeEngine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/route", func(w http.ResponseWriter, req *http.Request) {
		var body routeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.From == "" || body.To == "" {
			writeJSONError(w, http.StatusBadRequest, "from and to are required")
			return
		}
		hour, err := parseQueryHour(body.Time)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := engine.solve(req.Context(), body, hour)
		if err != nil {
			zap.L().Warn("route request failed",
				zap.String("from", body.From),
				zap.String("to", body.To),
				zap.Error(err),
			)
			writeJSONError(w, statusForRouteErr(err), err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	return r
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve route queries over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := newRouteEngine(ctx)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(engine),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
