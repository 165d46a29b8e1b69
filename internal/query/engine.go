// Package query finds the windows of a single day in which everyone invited
// to a meeting is free.
//
// The engine is a pure function of its inputs: it never mutates the events or
// the request it is given and is safe for concurrent use.
package query

import (
	"slices"

	"meetslot/internal/models"
)

// Refinement selects how optional attendees' conflicts are reconciled with
// the windows that suit the mandatory attendees.
type Refinement int

const (
	// RefineTrim cuts optional attendees' busy time out of each window and
	// keeps the remaining pieces that are still long enough.
	//
	// It is the default even though the refinement step is classically worded
	// as dropping a conflicting window whole: a day that is free for the
	// mandatory attendees, with an optional attendee busy from 10:00 on, must
	// yield [00:00, 10:00), and only trimming produces that. RefineDrop keeps
	// the literal reading.
	RefineTrim Refinement = iota
	// RefineDrop discards any window an optional attendee conflicts with,
	// without splitting it.
	RefineDrop
)

func (r Refinement) String() string {
	switch r {
	case RefineDrop:
		return "drop"
	default:
		return "trim"
	}
}

// Engine answers meeting queries.
type Engine struct {
	refinement Refinement
}

// Option configures an Engine.
type Option func(*Engine)

// WithRefinement sets the optional-attendee refinement mode.
func WithRefinement(r Refinement) Option {
	return func(e *Engine) {
		e.refinement = r
	}
}

// NewEngine creates a new Engine. The default refinement is RefineTrim.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{refinement: RefineTrim}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Query runs req against events with the default engine.
func Query(events []models.Event, req models.MeetingRequest) []models.TimeRange {
	return defaultEngine.Query(events, req)
}

// Query returns the free windows of the day, sorted by start, that are at
// least req.Duration long. Windows suiting optional attendees as well are
// preferred; when none exist the windows for mandatory attendees alone are
// returned. An empty result means no time works.
func (e *Engine) Query(events []models.Event, req models.MeetingRequest) []models.TimeRange {
	if req.Duration > models.WholeDay.Duration() {
		return []models.TimeRange{}
	}
	if len(events) == 0 || req.Attendees.Empty() {
		return []models.TimeRange{models.WholeDay}
	}

	mandatoryFree := freeWindows(busyRanges(events, req.Attendees), req.Duration)

	if req.OptionalAttendees.Empty() || req.OptionalAttendees.Equal(req.Attendees) {
		return mandatoryFree
	}

	optionalBusy := busyRanges(events, req.OptionalAttendees)
	if len(optionalBusy) == 0 {
		return mandatoryFree
	}

	var refined []models.TimeRange
	switch e.refinement {
	case RefineDrop:
		refined = dropConflicting(mandatoryFree, optionalBusy)
	default:
		refined = trimConflicting(mandatoryFree, optionalBusy, req.Duration)
	}
	if len(refined) > 0 {
		return refined
	}
	return mandatoryFree
}

// busyRanges collects, sorted, the day-clamped ranges of every event that
// shares an attendee with attendees. Events that cover no time are ignored.
func busyRanges(events []models.Event, attendees models.AttendeeSet) []models.TimeRange {
	var busy []models.TimeRange
	for _, event := range events {
		if !event.Attendees.Intersects(attendees) {
			continue
		}
		when := event.When.Clamp(models.WholeDay)
		if when.Empty() {
			continue
		}
		busy = append(busy, when)
	}
	slices.SortFunc(busy, models.Compare)
	return busy
}

// freeWindows returns the gaps between sorted busy ranges, and between them
// and the day boundaries, that are at least duration long.
//
// A range fully inside its predecessor is removed from the working slice and
// the same position examined again, so that after the walk every busy block
// ends later than the one before it. Ranges that merely overlap form one
// block and produce no gap.
func freeWindows(busy []models.TimeRange, duration int) []models.TimeRange {
	if len(busy) == 0 {
		return []models.TimeRange{models.WholeDay}
	}

	working := slices.Clone(busy)
	free := []models.TimeRange{}

	emit := func(gap models.TimeRange) {
		if !gap.Empty() && gap.Duration() >= duration {
			free = append(free, gap)
		}
	}

	emit(models.FromStartEnd(models.StartOfDay, working[0].Start(), false))

	for i := 0; i < len(working)-1; {
		current, next := working[i], working[i+1]
		switch {
		case !current.Overlaps(next):
			emit(models.FromStartEnd(current.End(), next.Start(), false))
			i++
		case current.Contains(next):
			working = slices.Delete(working, i+1, i+2)
		default:
			i++
		}
	}

	emit(models.FromStartEnd(working[len(working)-1].End(), models.EndOfDay, true))

	return free
}

// dropConflicting keeps only the windows no busy range overlaps.
func dropConflicting(windows, busy []models.TimeRange) []models.TimeRange {
	kept := []models.TimeRange{}
	for _, w := range windows {
		if !slices.ContainsFunc(busy, w.Overlaps) {
			kept = append(kept, w)
		}
	}
	return kept
}

// trimConflicting subtracts the sorted busy ranges from each window and keeps
// the pieces that are still at least duration long.
func trimConflicting(windows, busy []models.TimeRange, duration int) []models.TimeRange {
	kept := []models.TimeRange{}
	keep := func(piece models.TimeRange) {
		if !piece.Empty() && piece.Duration() >= duration {
			kept = append(kept, piece)
		}
	}

	for _, w := range windows {
		cursor := w.Start()
		for _, b := range busy {
			if b.Start() >= w.End() {
				break
			}
			if !b.Overlaps(w) || b.End() <= cursor {
				continue
			}
			if b.Start() > cursor {
				keep(models.FromStartEnd(cursor, b.Start(), false))
			}
			cursor = b.End()
		}
		if cursor < w.End() {
			keep(models.FromStartEnd(cursor, w.End(), false))
		}
	}
	return kept
}
