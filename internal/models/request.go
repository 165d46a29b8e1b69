package models

import (
	"errors"
	"fmt"
)

// ErrNegativeDuration is returned by MeetingRequest.Validate for durations below zero.
var ErrNegativeDuration = errors.New("meeting duration must not be negative")

// MeetingRequest describes the meeting to find time for. Duration is in
// minutes and may exceed a day, in which case no window will ever fit.
type MeetingRequest struct {
	Duration          int
	Attendees         AttendeeSet // mandatory
	OptionalAttendees AttendeeSet
}

// NewMeetingRequest creates a request with mandatory attendees only.
func NewMeetingRequest(duration int, attendees []string) MeetingRequest {
	return MeetingRequest{
		Duration:          duration,
		Attendees:         NewAttendeeSet(attendees...),
		OptionalAttendees: NewAttendeeSet(),
	}
}

// WithOptional returns a copy of the request that also invites the given optional attendees.
func (r MeetingRequest) WithOptional(ids ...string) MeetingRequest {
	r.OptionalAttendees = r.OptionalAttendees.Union(NewAttendeeSet(ids...))
	return r
}

// Everyone returns the mandatory and optional attendees together.
func (r MeetingRequest) Everyone() AttendeeSet {
	return r.Attendees.Union(r.OptionalAttendees)
}

// Validate rejects requests that cannot be meaningfully answered.
func (r MeetingRequest) Validate() error {
	if r.Duration < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDuration, r.Duration)
	}
	return nil
}
