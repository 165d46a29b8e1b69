// Package planner gathers calendar entries from every configured source,
// finds the free windows for a meeting on a given day and books meetings.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"meetslot/internal/ics"
	"meetslot/internal/models"
	"meetslot/internal/query"
)

var (
	// ErrNoWindow is returned by Book when the plan has no free window.
	ErrNoWindow = errors.New("no free window for the meeting")
	// ErrNoBooker is returned by Book when no calendar to book into is configured.
	ErrNoBooker = errors.New("no calendar configured for booking")
	// ErrNoSources is returned by Plan when no source could be read.
	ErrNoSources = errors.New("no calendar source could be read")
)

// Source provides the calendar entries overlapping a time span.
type Source interface {
	Name() string
	Entries(ctx context.Context, from, to time.Time) ([]*models.Entry, error)
}

// Booker writes a new meeting to a calendar.
type Booker interface {
	BookMeeting(ctx context.Context, entry *models.Entry) error
}

// Planner orchestrates fetching entries, querying for free windows and booking.
type Planner struct {
	logger      *slog.Logger
	sources     []Source
	engine      *query.Engine
	booker      Booker
	location    *time.Location
	dryRun      bool
	concurrency int
	ledger      *Ledger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLocation sets the time zone days are laid out in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Planner) { p.location = loc }
}

// WithBooker sets the calendar meetings are booked into.
func WithBooker(b Booker) Option {
	return func(p *Planner) { p.booker = b }
}

// WithDryRun makes Book log what it would do without writing anything.
func WithDryRun(dryRun bool) Option {
	return func(p *Planner) { p.dryRun = dryRun }
}

// WithConcurrency bounds how many sources are fetched at once.
func WithConcurrency(n int) Option {
	return func(p *Planner) { p.concurrency = n }
}

// WithLedger records bookings in l so that the same plan is not booked twice.
func WithLedger(l *Ledger) Option {
	return func(p *Planner) { p.ledger = l }
}

// New creates a new Planner.
func New(logger *slog.Logger, sources []Source, engine *query.Engine, opts ...Option) *Planner {
	p := &Planner{
		logger:      logger,
		sources:     sources,
		engine:      engine,
		location:    time.UTC,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = query.NewEngine()
	}
	return p
}

// Plan finds the free windows for req on the given day.
func (p *Planner) Plan(ctx context.Context, day time.Time, req models.MeetingRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	local := day.In(p.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	p.logger.Info("Planning meeting.", "day", dayStart.Format(time.DateOnly), "duration", req.Duration,
		"attendees", req.Attendees.Len(), "optional", req.OptionalAttendees.Len())

	entries, err := p.fetchAllEntries(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	for _, entry := range dedupe(entries) {
		if event, ok := entry.OnDay(dayStart, dayEnd); ok {
			events = append(events, event)
		}
	}

	windows := shortenToDay(p.engine.Query(events, req), models.DayLength(dayStart, dayEnd), req.Duration)
	p.logger.Info("Found free windows.", "events", len(events), "windows", len(windows))

	return &Plan{
		Day:     dayStart,
		Request: req,
		Events:  len(events),
		Windows: windows,
	}, nil
}

// shortenToDay cuts windows back to a day of dayLength minutes, the day clocks
// spring forward, and drops those left shorter than duration. A 25-hour day
// keeps the usual 1440-minute frame; its extra hour is never offered.
func shortenToDay(windows []models.TimeRange, dayLength, duration int) []models.TimeRange {
	if dayLength >= models.EndOfDay {
		return windows
	}
	bounds := models.FromStartEnd(models.StartOfDay, dayLength, false)
	kept := make([]models.TimeRange, 0, len(windows))
	for _, w := range windows {
		if w = w.Clamp(bounds); !w.Empty() && w.Duration() >= duration {
			kept = append(kept, w)
		}
	}
	return kept
}

// fetchAllEntries retrieves entries from all sources. A failing source is
// logged and skipped; only when every source fails is an error returned.
func (p *Planner) fetchAllEntries(ctx context.Context, from, to time.Time) ([]*models.Entry, error) {
	if len(p.sources) == 0 {
		return nil, nil
	}

	results := make([][]*models.Entry, len(p.sources))
	failed := make([]bool, len(p.sources))

	g, gctx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, src := range p.sources {
		g.Go(func() error {
			entries, err := src.Entries(gctx, from, to)
			if err != nil {
				p.logger.Error("Could not fetch entries from a source", "source", src.Name(), "error", err)
				failed[i] = true
				return nil
			}
			p.logger.Debug("Fetched entries.", "source", src.Name(), "count", len(entries))
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetching entries: %w", err)
	}

	var all []*models.Entry
	failures := 0
	for i := range results {
		if failed[i] {
			failures++
			continue
		}
		all = append(all, results[i]...)
	}
	if failures == len(p.sources) {
		return nil, ErrNoSources
	}
	return all, nil
}

// dedupe merges copies of the same meeting found in several calendars,
// keeping the first copy and the union of their attendees.
func dedupe(entries []*models.Entry) []*models.Entry {
	type key struct {
		uid        string
		start, end int64
	}
	seen := make(map[key]*models.Entry, len(entries))
	out := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.UID == "" {
			out = append(out, e)
			continue
		}
		k := key{uid: e.UID, start: e.StartTime.Unix(), end: e.EndTime.Unix()}
		first, ok := seen[k]
		if !ok {
			merged := *e
			merged.Attendees = append([]string(nil), e.Attendees...)
			seen[k] = &merged
			out = append(out, &merged)
			continue
		}
		first.Attendees = append(first.Attendees, e.Attendees...)
	}
	return out
}

// Book creates a meeting in the first free window of plan and returns it.
// Booking a plan that was already booked returns the recorded meeting
// without writing anything, even when the booking now fills the day.
func (p *Planner) Book(ctx context.Context, plan *Plan, title string) (*models.Entry, error) {
	key := plan.Key()
	if p.ledger != nil {
		if booked, ok := p.ledger.Lookup(key); ok {
			p.logger.Info("Meeting already booked, skipping.", "key", key, "uid", booked.UID)
			return plan.booked(booked), nil
		}
	}

	if len(plan.Windows) == 0 {
		return nil, ErrNoWindow
	}
	if p.booker == nil && !p.dryRun {
		return nil, ErrNoBooker
	}

	meeting := plan.meeting(title, ics.GenerateUID())

	if p.dryRun {
		p.logger.Info("[DRY RUN] Would book meeting", "title", meeting.Title, "start", meeting.StartTime, "end", meeting.EndTime)
		return meeting, nil
	}

	if err := p.booker.BookMeeting(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to book meeting: %w", err)
	}

	if p.ledger != nil {
		p.ledger.Record(key, Booking{
			UID:   meeting.UID,
			Title: meeting.Title,
			Start: meeting.StartTime,
			End:   meeting.EndTime,
		})
		if err := p.ledger.Save(); err != nil {
			p.logger.Error("Failed to save booking ledger", "error", err)
		}
	}
	return meeting, nil
}
