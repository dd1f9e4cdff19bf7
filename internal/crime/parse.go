package crime

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safewalk/safewalk-cli/internal/risk"
)

// ParseOptions maps source columns onto Record fields. Column matching is
// case-insensitive. Municipal crime extracts vary: some carry separate
// lat/lon columns, some a combined "(lat, lon)" column, some a pre-bucketed
// "HH-HH" interval instead of a timestamp.
type ParseOptions struct {
	IDColumn      string
	LatColumn     string
	LonColumn     string
	CoordColumn   string // combined "(lat, lon)" column; used if lat/lon absent
	WeightColumn  string
	BucketColumn  string // "HH-HH" interval column
	TimeColumn    string
	TimeLayout    string // defaults to "2006-01-02 15:04:05"
	OffenseColumn string

	BucketHours   int     // bucket width when deriving from timestamps
	DefaultWeight float64 // weight when no weight column; 1 if zero
}

// ParseStats counts what happened to the input rows.
type ParseStats struct {
	Parsed         int
	SkippedNoCoord int
	SkippedBadRow  int
}

// ParseRows converts raw tabular rows into validated Records. Rows without
// usable coordinates are skipped and counted, never guessed at.
func ParseRows(header []string, rows [][]string, opts ParseOptions) ([]Record, ParseStats, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(name string) (int, bool) {
		if name == "" {
			return 0, false
		}
		i, ok := idx[strings.ToLower(name)]
		return i, ok
	}

	latIdx, hasLat := col(opts.LatColumn)
	lonIdx, hasLon := col(opts.LonColumn)
	coordIdx, hasCoord := col(opts.CoordColumn)
	if !(hasLat && hasLon) && !hasCoord {
		return nil, ParseStats{}, eris.Errorf("crime: no coordinate columns found (looked for %q/%q and %q)",
			opts.LatColumn, opts.LonColumn, opts.CoordColumn)
	}
	idIdx, hasID := col(opts.IDColumn)
	weightIdx, hasWeight := col(opts.WeightColumn)
	bucketIdx, hasBucket := col(opts.BucketColumn)
	timeIdx, hasTime := col(opts.TimeColumn)
	offenseIdx, hasOffense := col(opts.OffenseColumn)

	layout := opts.TimeLayout
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	defaultWeight := opts.DefaultWeight
	if defaultWeight <= 0 {
		defaultWeight = 1
	}
	bucketHours := opts.BucketHours
	if bucketHours <= 0 {
		bucketHours = risk.DefaultBucketHours
	}

	var (
		records []Record
		stats   ParseStats
	)
	for _, row := range rows {
		get := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		var lat, lon float64
		var ok bool
		if hasLat && hasLon {
			lat, lon, ok = parseLatLon(get(latIdx), get(lonIdx))
		}
		if !ok && hasCoord {
			lat, lon, ok = parseCombinedCoord(get(coordIdx))
		}
		if !ok {
			stats.SkippedNoCoord++
			continue
		}

		rec := Record{Lat: lat, Lon: lon, Weight: defaultWeight}

		if hasID {
			rec.ID = get(idIdx)
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if hasOffense {
			rec.Offense = get(offenseIdx)
		}
		if hasWeight {
			if w, err := strconv.ParseFloat(get(weightIdx), 64); err == nil && w > 0 {
				rec.Weight = w
			}
		}

		if hasBucket {
			b, err := risk.ParseBucketLabel(get(bucketIdx))
			if err != nil {
				stats.SkippedBadRow++
				continue
			}
			rec.Bucket = b.Label()
		} else if hasTime {
			ts, err := time.Parse(layout, get(timeIdx))
			if err != nil {
				stats.SkippedBadRow++
				continue
			}
			rec.OccurredAt = ts
			rec.Bucket = risk.BucketOf(ts, bucketHours).Label()
		}

		records = append(records, rec)
		stats.Parsed++
	}

	if stats.SkippedNoCoord > 0 || stats.SkippedBadRow > 0 {
		zap.L().Info("parsed crime rows",
			zap.Int("parsed", stats.Parsed),
			zap.Int("skipped_no_coord", stats.SkippedNoCoord),
			zap.Int("skipped_bad_row", stats.SkippedBadRow),
		)
	}
	return records, stats, nil
}

func parseLatLon(latStr, lonStr string) (lat, lon float64, ok bool) {
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, validCoord(lat, lon)
}

// parseCombinedCoord handles the "(42.3601, -71.0589)" form some municipal
// extracts use.
func parseCombinedCoord(s string) (lat, lon float64, ok bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()"))
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	return parseLatLon(parts[0], parts[1])
}

// validCoord rejects null-island and out-of-range coordinates.
func validCoord(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ToEvents projects records into planar risk events using the provided
// projection function, skipping records the projector rejects.
func ToEvents(records []Record, project func(lon, lat float64) (x, y float64, err error)) []risk.Event {
	events := make([]risk.Event, 0, len(records))
	skipped := 0
	for _, r := range records {
		x, y, err := project(r.Lon, r.Lat)
		if err != nil {
			skipped++
			continue
		}
		ev := risk.Event{X: x, Y: y, Weight: r.Weight}
		if b, err := risk.ParseBucketLabel(r.Bucket); err == nil {
			ev.Bucket = b
		} else {
			ev.Bucket = risk.Bucket{Start: 0, End: 24}
		}
		events = append(events, ev)
	}
	if skipped > 0 {
		zap.L().Warn("dropped records outside projection domain", zap.Int("count", skipped))
	}
	return events
}
