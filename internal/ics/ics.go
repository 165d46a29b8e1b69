// Package ics converts between iCalendar documents and calendar entries.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"meetslot/internal/models"
)

const productID = "-//meetslot//EN"

// Options control how VEVENTs are turned into entries.
type Options struct {
	// Owner is used as the attendee of events that name none, which is how a
	// personal calendar records the owner's own commitments.
	Owner string
	// Location resolves floating times. Defaults to UTC.
	Location *time.Location
	// From and To bound recurrence expansion; non-recurring events outside
	// [From, To) are dropped. A zero window keeps every event and expands nothing.
	From, To time.Time
	// Source labels the produced entries.
	Source string
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) bounded() bool {
	return !o.From.IsZero() && !o.To.IsZero()
}

// Decode reads every VCALENDAR in r and returns their entries.
func Decode(r io.Reader, opts Options) ([]*models.Entry, error) {
	dec := ical.NewDecoder(r)
	var entries []*models.Entry
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		calEntries, err := EntriesFromCalendar(cal, opts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, calEntries...)
	}
	return entries, nil
}

// EntriesFromCalendar converts the busy VEVENTs of cal to entries. Cancelled
// and transparent (free) events are skipped, and recurring events are
// expanded into one entry per occurrence within the options' window.
func EntriesFromCalendar(cal *ical.Calendar, opts Options) ([]*models.Entry, error) {
	var entries []*models.Entry
	events := cal.Events()
	for i := range events {
		ev := &events[i]
		if !isBusy(ev) {
			continue
		}

		base, err := toEntry(ev, opts)
		if err != nil {
			uid, _ := ev.Props.Text(ical.PropUID)
			return nil, fmt.Errorf("invalid event %q: %w", uid, err)
		}

		set, err := ev.RecurrenceSet(opts.location())
		if err != nil {
			return nil, fmt.Errorf("invalid recurrence for event %q: %w", base.UID, err)
		}
		if set == nil || !opts.bounded() {
			if !opts.bounded() || overlapsWindow(base.StartTime, base.EndTime, opts.From, opts.To) {
				entries = append(entries, base)
			}
			continue
		}
		entries = append(entries, expand(base, set, opts.From, opts.To)...)
	}
	return entries, nil
}

// expand returns a copy of base for every occurrence of set that overlaps [from, to).
func expand(base *models.Entry, set *rrule.Set, from, to time.Time) []*models.Entry {
	length := base.EndTime.Sub(base.StartTime)
	var out []*models.Entry
	for _, start := range set.Between(from.Add(-length), to, true) {
		end := start.Add(length)
		if !overlapsWindow(start, end, from, to) {
			continue
		}
		occurrence := *base
		occurrence.ID = fmt.Sprintf("%s@%s", base.UID, start.UTC().Format("20060102T150405Z"))
		occurrence.StartTime = start
		occurrence.EndTime = end
		occurrence.Attendees = append([]string(nil), base.Attendees...)
		out = append(out, &occurrence)
	}
	return out
}

func overlapsWindow(start, end, from, to time.Time) bool {
	return start.Before(to) && end.After(from)
}

func isBusy(ev *ical.Event) bool {
	if status, _ := ev.Props.Text(ical.PropStatus); strings.EqualFold(status, "CANCELLED") {
		return false
	}
	if transp, _ := ev.Props.Text(ical.PropTransparency); strings.EqualFold(transp, "TRANSPARENT") {
		return false
	}
	return true
}

func toEntry(ev *ical.Event, opts Options) (*models.Entry, error) {
	loc := opts.location()
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return nil, fmt.Errorf("bad DTSTART: %w", err)
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return nil, fmt.Errorf("bad DTEND: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("event ends before it starts")
	}

	uid, _ := ev.Props.Text(ical.PropUID)
	summary, _ := ev.Props.Text(ical.PropSummary)
	description, _ := ev.Props.Text(ical.PropDescription)
	location, _ := ev.Props.Text(ical.PropLocation)

	var organizer string
	if prop := ev.Props.Get(ical.PropOrganizer); prop != nil {
		organizer = models.NormalizeAttendee(prop.Value)
	}

	var attendees []string
	if organizer != "" {
		attendees = append(attendees, organizer)
	}
	for _, prop := range ev.Props.Values(ical.PropAttendee) {
		if strings.EqualFold(prop.Params.Get(ical.ParamParticipationStatus), "DECLINED") {
			continue
		}
		attendees = append(attendees, models.NormalizeAttendee(prop.Value))
	}
	if len(attendees) == 0 && opts.Owner != "" {
		attendees = append(attendees, models.NormalizeAttendee(opts.Owner))
	}

	return &models.Entry{
		ID:          uid,
		UID:         uid,
		Title:       summary,
		Description: description,
		StartTime:   start,
		EndTime:     end,
		Location:    location,
		Organizer:   organizer,
		Attendees:   attendees,
		Source:      opts.Source,
	}, nil
}

// NewCalendar wraps the given entries in a VCALENDAR.
func NewCalendar(entries ...*models.Entry) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, entry := range entries {
		cal.Children = append(cal.Children, ToComponent(entry))
	}
	return cal
}

// Encode writes the entries to w as a single VCALENDAR.
func Encode(w io.Writer, entries ...*models.Entry) error {
	if err := ical.NewEncoder(w).Encode(NewCalendar(entries...)); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	return nil
}

// ToComponent converts an entry to a VEVENT component.
func ToComponent(entry *models.Entry) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, entry.UID)
	ve.Props.SetText(ical.PropSummary, entry.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, entry.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, entry.EndTime)

	if entry.Description != "" {
		ve.Props.SetText(ical.PropDescription, entry.Description)
	}
	if entry.Location != "" {
		ve.Props.SetText(ical.PropLocation, entry.Location)
	}
	if entry.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", entry.Organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range entry.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
