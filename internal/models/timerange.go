package models

import (
	"cmp"
	"fmt"
)

const (
	// StartOfDay is the first minute of a day.
	StartOfDay = 0
	// EndOfDay is the last instant of a day, one past the final minute.
	EndOfDay = 24 * 60
)

// WholeDay spans the entire day, [StartOfDay, EndOfDay).
var WholeDay = FromStartEnd(StartOfDay, EndOfDay, true)

// TimeRange is a half-open interval [start, end) measured in minutes of day.
// It is a value type; no method mutates the receiver.
type TimeRange struct {
	start    int
	duration int
}

// FromStartDuration returns the range starting at start and lasting duration minutes.
// Values outside the day are allowed here; clamping is the caller's job.
func FromStartDuration(start, duration int) TimeRange {
	return TimeRange{start: start, duration: duration}
}

// FromStartEnd returns the range between start and end. With inclusive set,
// end is a closed bound: a minute before EndOfDay is itself included, while
// EndOfDay, already the last instant of the day, is kept as is.
func FromStartEnd(start, end int, inclusive bool) TimeRange {
	if inclusive && end < EndOfDay {
		end++
	}
	return TimeRange{start: start, duration: end - start}
}

// Start returns the first minute in the range.
func (r TimeRange) Start() int { return r.start }

// End returns the minute just past the range.
func (r TimeRange) End() int { return r.start + r.duration }

// Duration returns the length of the range in minutes.
func (r TimeRange) Duration() int { return r.duration }

// Empty reports whether the range covers no time at all.
func (r TimeRange) Empty() bool { return r.duration <= 0 }

// Overlaps reports whether r and other share at least one instant.
// Ranges that only touch at a boundary do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.start < other.End() && other.start < r.End()
}

// Contains reports whether other lies entirely within r.
func (r TimeRange) Contains(other TimeRange) bool {
	return r.start <= other.start && r.End() >= other.End()
}

// Clamp returns the part of r that falls inside bounds. The result is empty
// when they are disjoint.
func (r TimeRange) Clamp(bounds TimeRange) TimeRange {
	start := max(r.start, bounds.start)
	end := min(r.End(), bounds.End())
	if end < start {
		end = start
	}
	return TimeRange{start: start, duration: end - start}
}

// String renders the range as [start, end).
func (r TimeRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.start, r.End())
}

// Clock renders the range as wall-clock minutes, e.g. 09:30-10:00.
func (r TimeRange) Clock() string {
	return clock(r.start) + "-" + clock(r.End())
}

func clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Compare orders ranges by start ascending. Ranges that start together are
// ordered longest first, so a range always sorts ahead of the ranges it contains.
func Compare(a, b TimeRange) int {
	if c := cmp.Compare(a.start, b.start); c != 0 {
		return c
	}
	return cmp.Compare(b.End(), a.End())
}
