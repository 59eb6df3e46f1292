// Package interval provides a small half-open time range type shared by the
// calendar cache packages. All ranges are [Start, End): the start instant is
// included, the end instant is not.
package interval

import (
	"fmt"
	"time"
)

// Range is a half-open time range [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds a Range from two instants.
func New(start, end time.Time) Range {
	return Range{Start: start, End: end}
}

// Valid reports whether the range is well-formed (Start <= End).
func (r Range) Valid() bool {
	return !r.Start.After(r.End)
}

// IsZero reports whether both bounds are the zero time.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Duration returns End - Start.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// ContainsTime reports whether t lies within [Start, End).
func (r Range) ContainsTime(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Intersects reports whether r and other share at least one instant.
// Touching ranges ([a,b) and [b,c)) do not intersect.
func (r Range) Intersects(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Clip returns the intersection of r and other. The zero Range is returned
// when they do not intersect.
func (r Range) Clip(other Range) Range {
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	if start.After(end) {
		return Range{}
	}
	return Range{Start: start, End: end}
}

// Equal reports whether both bounds match instant-for-instant.
func (r Range) Equal(other Range) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// String provides a compact human-readable representation for logging.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Occurrence reports whether an event starting at start with the given
// duration overlaps r. Zero-length events are treated as a single instant so
// that all-day markers and tasks with a due instant still match.
func (r Range) Occurrence(start time.Time, d time.Duration) bool {
	if d <= 0 {
		return r.ContainsTime(start)
	}
	return r.Intersects(Range{Start: start, End: start.Add(d)})
}
