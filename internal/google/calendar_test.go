package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func TestToEntries(t *testing.T) {
	items := []*calendar.Event{
		{
			Id:        "evt-1",
			ICalUID:   "review@google.com",
			Summary:   "Review",
			Start:     &calendar.EventDateTime{DateTime: "2025-06-10T10:00:00+02:00"},
			End:       &calendar.EventDateTime{DateTime: "2025-06-10T11:00:00+02:00"},
			Organizer: &calendar.EventOrganizer{Email: "Alice@example.com"},
			Attendees: []*calendar.EventAttendee{
				{Email: "alice@example.com", ResponseStatus: "accepted"},
				{Email: "Bob@example.com", ResponseStatus: "needsAction"},
				{Email: "carol@example.com", ResponseStatus: "declined"},
			},
		},
		{
			Id:      "evt-2",
			ICalUID: "gym@google.com",
			Summary: "Gym",
			Start:   &calendar.EventDateTime{DateTime: "2025-06-10T18:00:00Z"},
			End:     &calendar.EventDateTime{DateTime: "2025-06-10T19:00:00Z"},
		},
		{
			Id:      "holiday",
			Summary: "Public holiday",
			Start:   &calendar.EventDateTime{Date: "2025-06-10"},
			End:     &calendar.EventDateTime{Date: "2025-06-11"},
		},
		{
			Id:           "focus",
			Summary:      "Focus",
			Transparency: "transparent",
			Start:        &calendar.EventDateTime{DateTime: "2025-06-10T08:00:00Z"},
			End:          &calendar.EventDateTime{DateTime: "2025-06-10T09:00:00Z"},
		},
		{
			Id:      "gone",
			Status:  "cancelled",
			Summary: "Cancelled",
			Start:   &calendar.EventDateTime{DateTime: "2025-06-10T08:00:00Z"},
			End:     &calendar.EventDateTime{DateTime: "2025-06-10T09:00:00Z"},
		},
	}

	entries := toEntries(items, "dave@example.com", "google-work-dave@example.com")
	require.Len(t, entries, 2)

	review := entries[0]
	assert.Equal(t, "review@google.com", review.UID)
	assert.Equal(t, "alice@example.com", review.Organizer)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, review.Attendees)
	assert.True(t, review.StartTime.Equal(time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "google-work-dave@example.com", review.Source)

	gym := entries[1]
	assert.Equal(t, []string{"dave@example.com"}, gym.Attendees, "private events belong to the calendar owner")
	assert.Empty(t, gym.Organizer)
}

func TestToEntries_GuestlessEventOwner(t *testing.T) {
	timed := func(id string) *calendar.Event {
		return &calendar.Event{
			Id:    id,
			Start: &calendar.EventDateTime{DateTime: "2025-06-10T10:00:00Z"},
			End:   &calendar.EventDateTime{DateTime: "2025-06-10T11:00:00Z"},
		}
	}
	dentist := timed("dentist")
	dentist.Organizer = &calendar.EventOrganizer{Email: "Dave@example.com", Self: true}
	gym := timed("gym")
	gym.Creator = &calendar.EventCreator{Email: "dave@example.com"}
	anonymous := timed("anonymous")

	tests := []struct {
		name  string
		owner string
		event *calendar.Event
		want  []string
	}{
		{"primary calendar uses the organizer", "primary", dentist, []string{"dave@example.com"}},
		{"primary calendar falls back to the creator", "primary", gym, []string{"dave@example.com"}},
		{"organizer wins over the calendar ID", "team@example.com", dentist, []string{"dave@example.com"}},
		{"address calendar ID is the last resort", "team@example.com", anonymous, []string{"team@example.com"}},
		{"nobody to blame", "primary", anonymous, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := toEntries([]*calendar.Event{tt.event}, tt.owner, "google-work-"+tt.owner)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Attendees)
		})
	}
}

func TestTokenFiles(t *testing.T) {
	dir := t.TempDir()
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, SaveToken(TokenFile(dir, "work"), token))
	require.NoError(t, SaveToken(TokenFile(dir, "personal"), token))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	info, err := os.Stat(TokenFile(dir, "work"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := loadToken(TokenFile(dir, "work"))
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	accounts, err := GetTokenAccounts(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"personal", "work"}, accounts)

	_, err = NewClient(context.Background(), discardLogger(), "id", "secret", dir, "missing")
	assert.ErrorContains(t, err, "auth")
}

func TestGetOAuthConfig_FromEnvValues(t *testing.T) {
	config, err := GetOAuthConfigForAuthFlow("id", "secret")
	require.NoError(t, err)
	assert.Equal(t, "id", config.ClientID)
	assert.Equal(t, []string{calendar.CalendarReadonlyScope}, config.Scopes)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCalendarClient_AgainstFakeAPI(t *testing.T) {
	var listQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary"}, {Id: "team"},
		}})
	})
	mux.HandleFunc("/calendars/team/events", func(w http.ResponseWriter, r *http.Request) {
		listQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(calendar.Events{Items: []*calendar.Event{{
			Id:        "evt",
			ICalUID:   "standup@google.com",
			Start:     &calendar.EventDateTime{DateTime: "2025-06-10T09:00:00Z"},
			End:       &calendar.EventDateTime{DateTime: "2025-06-10T09:15:00Z"},
			Attendees: []*calendar.EventAttendee{{Email: "alice@example.com"}},
		}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	service, err := calendar.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	client := newCalendarClient(service, discardLogger(), "work")

	calendars, err := client.Calendars(ctx, []string{"*"})
	require.NoError(t, err)
	require.Len(t, calendars, 2)
	assert.Equal(t, "google-work-team", calendars[1].Name())

	from := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	entries, err := calendars[1].Entries(ctx, from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "standup@google.com", entries[0].UID)
	assert.Contains(t, listQuery, "singleEvents=true")

	explicit, err := client.Calendars(ctx, []string{"primary"})
	require.NoError(t, err)
	require.Len(t, explicit, 1)
	assert.Equal(t, "google-work-primary", explicit[0].Name())
}
