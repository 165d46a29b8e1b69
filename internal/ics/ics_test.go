package ics

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetslot/internal/models"
)

const fixture = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:planning@example.com
DTSTAMP:20250601T000000Z
DTSTART:20250610T100000Z
DTEND:20250610T110000Z
SUMMARY:Planning
ORGANIZER:mailto:Alice@example.com
ATTENDEE;PARTSTAT=ACCEPTED:mailto:bob@example.com
ATTENDEE;PARTSTAT=DECLINED:mailto:carol@example.com
END:VEVENT
BEGIN:VEVENT
UID:focus@example.com
DTSTAMP:20250601T000000Z
DTSTART:20250610T130000Z
DTEND:20250610T140000Z
SUMMARY:Focus time
TRANSP:TRANSPARENT
END:VEVENT
BEGIN:VEVENT
UID:cancelled@example.com
DTSTAMP:20250601T000000Z
DTSTART:20250610T150000Z
DTEND:20250610T160000Z
SUMMARY:Cancelled sync
STATUS:CANCELLED
END:VEVENT
BEGIN:VEVENT
UID:dentist@example.com
DTSTAMP:20250601T000000Z
DTSTART:20250610T160000Z
DURATION:PT45M
SUMMARY:Dentist
END:VEVENT
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20250601T000000Z
DTSTART:20250601T090000Z
DTEND:20250601T091500Z
RRULE:FREQ=DAILY;COUNT=30
SUMMARY:Standup
ATTENDEE:mailto:bob@example.com
END:VEVENT
BEGIN:VEVENT
UID:offsite@example.com
DTSTAMP:20250601T000000Z
DTSTART:20250620T090000Z
DTEND:20250620T170000Z
SUMMARY:Offsite
END:VEVENT
END:VCALENDAR
`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func day() (time.Time, time.Time) {
	from := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

func byUID(entries []*models.Entry) map[string]*models.Entry {
	out := make(map[string]*models.Entry, len(entries))
	for _, e := range entries {
		out[e.UID] = e
	}
	return out
}

func TestDecode_BusyEventsOfTheDay(t *testing.T) {
	from, to := day()
	entries, err := Decode(strings.NewReader(crlf(fixture)), Options{
		Owner:  "owner@example.com",
		From:   from,
		To:     to,
		Source: "test",
	})
	require.NoError(t, err)

	got := byUID(entries)
	require.Len(t, got, 3, "transparent, cancelled and out-of-window events are skipped")

	planning := got["planning@example.com"]
	require.NotNil(t, planning)
	assert.Equal(t, "Planning", planning.Title)
	assert.Equal(t, "alice@example.com", planning.Organizer)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, planning.Attendees, "declined attendees are not busy")
	assert.Equal(t, from.Add(10*time.Hour), planning.StartTime)
	assert.Equal(t, from.Add(11*time.Hour), planning.EndTime)
	assert.Equal(t, "test", planning.Source)

	dentist := got["dentist@example.com"]
	require.NotNil(t, dentist)
	assert.Equal(t, []string{"owner@example.com"}, dentist.Attendees, "events without attendees belong to the owner")
	assert.Equal(t, 45*time.Minute, dentist.EndTime.Sub(dentist.StartTime))

	standup := got["standup@example.com"]
	require.NotNil(t, standup, "recurring event expands into the day")
	assert.Equal(t, from.Add(9*time.Hour), standup.StartTime)
	assert.Equal(t, from.Add(9*time.Hour+15*time.Minute), standup.EndTime)
	assert.Equal(t, "standup@example.com@20250610T090000Z", standup.ID)
}

func TestDecode_Unbounded(t *testing.T) {
	entries, err := Decode(strings.NewReader(crlf(fixture)), Options{})
	require.NoError(t, err)
	assert.Len(t, entries, 4, "without a window every busy event is kept once")
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("BEGIN:VCALENDAR\r\nnot a property\r\n"), Options{})
	assert.Error(t, err)
}

func TestEncode_RoundTrip(t *testing.T) {
	from, to := day()
	entry := &models.Entry{
		UID:         GenerateUID(),
		Title:       "Design review",
		Description: "Walk through the proposal",
		StartTime:   from.Add(14 * time.Hour),
		EndTime:     from.Add(15 * time.Hour),
		Location:    "Room 4",
		Organizer:   "alice@example.com",
		Attendees:   []string{"bob@example.com", "carol@example.com"},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, entry))
	assert.Contains(t, buf.String(), "PRODID:"+productID)

	decoded, err := Decode(&buf, Options{From: from, To: to})
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	got := decoded[0]
	assert.Equal(t, entry.UID, got.UID)
	assert.Equal(t, entry.Title, got.Title)
	assert.Equal(t, entry.Location, got.Location)
	assert.True(t, entry.StartTime.Equal(got.StartTime))
	assert.True(t, entry.EndTime.Equal(got.EndTime))
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com", "carol@example.com"}, got.Attendees)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work.ics")
	require.NoError(t, os.WriteFile(path, []byte(crlf(fixture)), 0o644))

	src := &FileSource{Path: path, Owner: "owner@example.com"}
	assert.Equal(t, "ics-work.ics", src.Name())

	from, to := day()
	entries, err := src.Entries(context.Background(), from, to)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = (&FileSource{Path: filepath.Join(t.TempDir(), "missing.ics")}).Entries(context.Background(), from, to)
	assert.Error(t, err)
}
