package graph

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// WriteGeoJSON serializes edges as a GeoJSON FeatureCollection of
// LineStrings with length and risk properties. Coordinates stay in the
// graph's planar CRS; downstream tooling reprojects for display.
func (g *Graph) WriteGeoJSON(w io.Writer) error {
	fc := geojson.FeatureCollection{}
	for _, e := range g.Edges {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: e.Geometry,
			Properties: map[string]any{
				"from":   e.From,
				"to":     e.To,
				"length": e.Length,
				"risk":   e.Risk,
			},
		})
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "graph: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "graph: write geojson")
	}
	return nil
}
