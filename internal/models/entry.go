package models

import (
	"math"
	"time"
)

// Entry represents a calendar entry as read from (or written to) a calendar provider.
// This is an internal representation, independent of any specific calendar provider.
type Entry struct {
	ID          string    // Identifier at the source calendar
	UID         string    // The iCalendar UID, shared by copies of the same meeting
	Title       string    // Summary or title of the entry
	Description string    // Detailed description of the entry
	StartTime   time.Time // Start time of the entry
	EndTime     time.Time // End time of the entry
	Location    string    // Location of the entry
	Organizer   string    // Organizer's email
	Attendees   []string  // List of attendee emails
	Source      string    // The source of the entry (e.g., "google-primary")
}

// OnDay projects the entry onto the day [dayStart, dayEnd). Partial minutes
// are widened so the event never looks shorter than it is. The result is not
// clamped to the day; ok is false when the entry does not touch the day at all.
// dayEnd is the next local midnight, so a daylight-saving day may be 23 or 25
// hours long; minutes past EndOfDay are clamped away by the query engine.
func (e *Entry) OnDay(dayStart, dayEnd time.Time) (Event, bool) {
	if !e.StartTime.Before(dayEnd) || !e.EndTime.After(dayStart) {
		return Event{}, false
	}

	start := int(math.Floor(e.StartTime.Sub(dayStart).Minutes()))
	end := int(math.Ceil(e.EndTime.Sub(dayStart).Minutes()))

	return Event{
		Title:     e.Title,
		When:      FromStartEnd(start, end, false),
		Attendees: NewAttendeeSet(e.Attendees...),
	}, true
}

// DayLength is the number of minutes between dayStart and dayEnd.
func DayLength(dayStart, dayEnd time.Time) int {
	return int(dayEnd.Sub(dayStart) / time.Minute)
}

// TimeOf converts a minute of the day beginning at dayStart back to a wall-clock time.
func TimeOf(dayStart time.Time, minute int) time.Time {
	return dayStart.Add(time.Duration(minute) * time.Minute)
}
