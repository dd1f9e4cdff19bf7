// Package risk estimates a continuous crime-risk surface from discrete
// weighted crime events via 2D Gaussian kernel density estimation, and
// projects that surface onto street-graph edges.
package risk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBucketHours is the width of a time-of-day bucket. Crime events are
// segmented into [0-4), [4-8), ... [20-24) by default.
const DefaultBucketHours = 4

// Bucket is a half-open time-of-day interval [Start, End) in hours.
type Bucket struct {
	Start int
	End   int
}

// BucketForHour returns the bucket of the given width containing hour.
func BucketForHour(hour, width int) Bucket {
	if width <= 0 {
		width = DefaultBucketHours
	}
	start := (hour / width) * width
	return Bucket{Start: start, End: start + width}
}

// BucketOf returns the bucket containing the timestamp's local hour.
func BucketOf(t time.Time, width int) Bucket {
	return BucketForHour(t.Hour(), width)
}

// Contains reports whether hour falls inside the bucket.
func (b Bucket) Contains(hour int) bool {
	return hour >= b.Start && hour < b.End
}

// Label renders the bucket as "HH-HH", the form crime datasets and edge
// attributes use.
func (b Bucket) Label() string {
	return fmt.Sprintf("%02d-%02d", b.Start, b.End)
}

// ParseBucketLabel parses an "HH-HH" interval label.
func ParseBucketLabel(s string) (Bucket, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Bucket{}, fmt.Errorf("risk: malformed bucket label %q", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Bucket{}, fmt.Errorf("risk: malformed bucket label %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Bucket{}, fmt.Errorf("risk: malformed bucket label %q", s)
	}
	if start < 0 || start > 23 || end <= start || end > 24 {
		return Bucket{}, fmt.Errorf("risk: bucket label %q out of range", s)
	}
	return Bucket{Start: start, End: end}, nil
}

// Event is a single crime occurrence in planar coordinates with a positive
// severity/recency weight. Events are immutable once loaded.
type Event struct {
	X      float64
	Y      float64
	Weight float64
	Bucket Bucket
}

// FilterBucket returns the events whose bucket contains the given hour.
func FilterBucket(events []Event, hour int) []Event {
	var out []Event
	for _, e := range events {
		if e.Bucket.Contains(hour) {
			out = append(out, e)
		}
	}
	return out
}
