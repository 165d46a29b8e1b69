package models

// Event is an existing calendar commitment as seen by the meeting query:
// when it happens and who attends. The title is informational only.
type Event struct {
	Title     string
	When      TimeRange
	Attendees AttendeeSet
}

// NewEvent creates an Event with the given attendees.
func NewEvent(title string, when TimeRange, attendees ...string) Event {
	return Event{
		Title:     title,
		When:      when,
		Attendees: NewAttendeeSet(attendees...),
	}
}
