package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendeeSet(t *testing.T) {
	set := NewAttendeeSet("Alice@Example.com", "mailto:bob@example.com", " ", "alice@example.com")

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("ALICE@example.com"))
	assert.True(t, set.Has("MAILTO:bob@example.com"))
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, set.Sorted())

	assert.True(t, set.Intersects(NewAttendeeSet("carol@example.com", "bob@example.com")))
	assert.False(t, set.Intersects(NewAttendeeSet("carol@example.com")))
	assert.False(t, set.Intersects(NewAttendeeSet()))

	assert.True(t, set.Equal(NewAttendeeSet("bob@example.com", "alice@example.com")))
	assert.False(t, set.Equal(NewAttendeeSet("bob@example.com")))

	union := set.Union(NewAttendeeSet("carol@example.com"))
	assert.Equal(t, 3, union.Len())
	assert.Equal(t, 2, set.Len(), "union must not modify the receiver")
}

func TestMeetingRequest(t *testing.T) {
	req := NewMeetingRequest(30, []string{"a"})
	assert.True(t, req.OptionalAttendees.Empty())
	require.NoError(t, req.Validate())

	withOptional := req.WithOptional("b", "c")
	assert.Equal(t, 2, withOptional.OptionalAttendees.Len())
	assert.True(t, req.OptionalAttendees.Empty(), "WithOptional returns a copy")
	assert.Equal(t, []string{"a", "b", "c"}, withOptional.Everyone().Sorted())

	err := NewMeetingRequest(-5, []string{"a"}).Validate()
	assert.ErrorIs(t, err, ErrNegativeDuration)
}

func TestEntry_OnDay(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		start  time.Time
		end    time.Time
		want   TimeRange
		wantOK bool
	}{
		{
			name:   "within the day",
			start:  day.Add(10 * time.Hour),
			end:    day.Add(11 * time.Hour),
			want:   FromStartEnd(600, 660, false),
			wantOK: true,
		},
		{
			name:   "partial minutes widen",
			start:  day.Add(10*time.Hour + 30*time.Second),
			end:    day.Add(10*time.Hour + 29*time.Minute + 10*time.Second),
			want:   FromStartEnd(600, 630, false),
			wantOK: true,
		},
		{
			name:   "starts the previous evening",
			start:  day.Add(-2 * time.Hour),
			end:    day.Add(1 * time.Hour),
			want:   FromStartEnd(-120, 60, false),
			wantOK: true,
		},
		{
			name:   "ends at midnight before",
			start:  day.Add(-1 * time.Hour),
			end:    day,
			wantOK: false,
		},
		{
			name:   "next day",
			start:  day.Add(24 * time.Hour),
			end:    day.Add(25 * time.Hour),
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Title: "sync", StartTime: tt.start, EndTime: tt.end, Attendees: []string{"A@example.com"}}
			event, ok := entry.OnDay(day, day.AddDate(0, 0, 1))
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, event.When)
			assert.Equal(t, "sync", event.Title)
			assert.True(t, event.Attendees.Has("a@example.com"))
		})
	}

	assert.Equal(t, day.Add(90*time.Minute), TimeOf(day, 90))
}

func TestEntry_OnDay_DaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// Clocks go forward at 02:00 on 2025-03-30: the day has 23 hours.
	short := time.Date(2025, 3, 30, 0, 0, 0, 0, loc)
	shortEnd := short.AddDate(0, 0, 1)
	assert.Equal(t, 23*60, DayLength(short, shortEnd))

	nextMorning := &Entry{StartTime: shortEnd, EndTime: shortEnd.Add(time.Hour), Attendees: []string{"a"}}
	_, ok := nextMorning.OnDay(short, shortEnd)
	assert.False(t, ok, "the next day's first hour is not part of a short day")

	// Clocks go back at 03:00 on 2025-10-26: the day has 25 hours.
	long := time.Date(2025, 10, 26, 0, 0, 0, 0, loc)
	longEnd := long.AddDate(0, 0, 1)
	assert.Equal(t, 25*60, DayLength(long, longEnd))

	lateEvening := &Entry{StartTime: longEnd.Add(-30 * time.Minute), EndTime: longEnd, Attendees: []string{"a"}}
	event, ok := lateEvening.OnDay(long, longEnd)
	require.True(t, ok)
	assert.Equal(t, FromStartEnd(1470, 1500, false), event.When)
}
