package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meetslot/internal/models"
)

// Plan is the outcome of a meeting query for one day.
type Plan struct {
	Day     time.Time             // midnight of the planned day
	Request models.MeetingRequest // what was asked for
	Events  int                   // events on the day that were considered
	Windows []models.TimeRange    // free windows, earliest first
}

// Start returns the wall-clock start of w.
func (p *Plan) Start(w models.TimeRange) time.Time {
	return models.TimeOf(p.Day, w.Start())
}

// End returns the wall-clock end of w.
func (p *Plan) End(w models.TimeRange) time.Time {
	return models.TimeOf(p.Day, w.End())
}

// Key identifies the meeting a plan is for, independent of the windows found.
func (p *Plan) Key() string {
	return fmt.Sprintf("%s|%d|%s|%s",
		p.Day.Format(time.DateOnly),
		p.Request.Duration,
		strings.Join(p.Request.Attendees.Sorted(), ","),
		strings.Join(p.Request.OptionalAttendees.Sorted(), ","),
	)
}

// meeting lays out a meeting of the requested duration at the start of the first window.
func (p *Plan) meeting(title, uid string) *models.Entry {
	start := p.Start(p.Windows[0])
	return &models.Entry{
		ID:        uid,
		UID:       uid,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(time.Duration(p.Request.Duration) * time.Minute),
		Attendees: p.Request.Everyone().Sorted(),
		Source:    "meetslot",
	}
}

// booked rebuilds the meeting recorded in the ledger.
func (p *Plan) booked(b Booking) *models.Entry {
	return &models.Entry{
		ID:        b.UID,
		UID:       b.UID,
		Title:     b.Title,
		StartTime: b.Start.In(p.Day.Location()),
		EndTime:   b.End.In(p.Day.Location()),
		Attendees: p.Request.Everyone().Sorted(),
		Source:    "meetslot",
	}
}

type windowJSON struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Minutes  int       `json:"minutes"`
	FromMin  int       `json:"from_minute"`
	UntilMin int       `json:"until_minute"`
}

type planJSON struct {
	Day       string       `json:"day"`
	Duration  int          `json:"duration"`
	Attendees []string     `json:"attendees"`
	Optional  []string     `json:"optional"`
	Events    int          `json:"events"`
	Windows   []windowJSON `json:"windows"`
}

// MarshalJSON renders the plan with wall-clock window times.
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := planJSON{
		Day:       p.Day.Format(time.DateOnly),
		Duration:  p.Request.Duration,
		Attendees: p.Request.Attendees.Sorted(),
		Optional:  p.Request.OptionalAttendees.Sorted(),
		Events:    p.Events,
		Windows:   make([]windowJSON, 0, len(p.Windows)),
	}
	for _, w := range p.Windows {
		out.Windows = append(out.Windows, windowJSON{
			Start:    p.Start(w),
			End:      p.End(w),
			Minutes:  w.Duration(),
			FromMin:  w.Start(),
			UntilMin: w.End(),
		})
	}
	return json.Marshal(out)
}
