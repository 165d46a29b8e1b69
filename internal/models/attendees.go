package models

import (
	"slices"
	"strings"
)

// AttendeeSet is an unordered, duplicate-free set of attendee identifiers.
type AttendeeSet map[string]struct{}

// NewAttendeeSet builds a set from the given identifiers. Identifiers are
// normalized (see NormalizeAttendee) and empty ones are dropped.
func NewAttendeeSet(ids ...string) AttendeeSet {
	set := make(AttendeeSet, len(ids))
	for _, id := range ids {
		if id = NormalizeAttendee(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// NormalizeAttendee trims whitespace and a mailto: prefix and lower-cases the rest,
// so that "mailto:Alice@Example.com" and "alice@example.com" are the same attendee.
func NormalizeAttendee(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= len("mailto:") && strings.EqualFold(id[:len("mailto:")], "mailto:") {
		id = id[len("mailto:"):]
	}
	return strings.ToLower(strings.TrimSpace(id))
}

func (s AttendeeSet) Len() int { return len(s) }

func (s AttendeeSet) Empty() bool { return len(s) == 0 }

func (s AttendeeSet) Has(id string) bool {
	_, ok := s[NormalizeAttendee(id)]
	return ok
}

// Intersects reports whether the two sets share at least one attendee.
func (s AttendeeSet) Intersects(other AttendeeSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold exactly the same attendees.
func (s AttendeeSet) Equal(other AttendeeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Union returns a new set holding the attendees of both sets.
func (s AttendeeSet) Union(other AttendeeSet) AttendeeSet {
	out := make(AttendeeSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the attendees in lexical order.
func (s AttendeeSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
