// Package google reads busy time from Google Calendar.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"meetslot/internal/models"
)

// CalendarClient is an authenticated Calendar API client for one account.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
	account string
}

// NewClient creates a client for account from its token file in tokenDir.
// Run the auth command once per account to create the token.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, account string) (*CalendarClient, error) {
	config, err := GetOAuthConfigForAuthFlow(clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	token, err := loadToken(TokenFile(tokenDir, account))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", account, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return newCalendarClient(service, logger, account), nil
}

func newCalendarClient(service *calendar.Service, logger *slog.Logger, account string) *CalendarClient {
	return &CalendarClient{service: service, logger: logger, account: account}
}

// Calendar is one calendar of an account. It is a planner source.
type Calendar struct {
	client *CalendarClient
	id     string
}

// Calendar returns the calendar with the given ID, e.g. "primary" or an email address.
func (c *CalendarClient) Calendar(calendarID string) *Calendar {
	return &Calendar{client: c, id: calendarID}
}

// Calendars returns the given calendars, or every calendar of the account
// when ids is just "*".
func (c *CalendarClient) Calendars(ctx context.Context, ids []string) ([]*Calendar, error) {
	if len(ids) == 1 && ids[0] == "*" {
		discovered, err := c.DiscoverGoogleCalendars(ctx)
		if err != nil {
			return nil, err
		}
		ids = discovered
	}
	calendars := make([]*Calendar, 0, len(ids))
	for _, id := range ids {
		calendars = append(calendars, c.Calendar(id))
	}
	return calendars, nil
}

// DiscoverGoogleCalendars lists the IDs of the calendars the account can see.
func (c *CalendarClient) DiscoverGoogleCalendars(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.service.CalendarList.List().Context(ctx).Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			ids = append(ids, item.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	c.logger.Debug("Discovered calendars", "account", c.account, "count", len(ids))
	return ids, nil
}

// Name identifies the calendar in logs.
func (cal *Calendar) Name() string {
	return fmt.Sprintf("google-%s-%s", cal.client.account, cal.id)
}

// Entries fetches the single (expanded) events of the calendar that overlap [from, to).
func (cal *Calendar) Entries(ctx context.Context, from, to time.Time) ([]*models.Entry, error) {
	logger := cal.client.logger
	logger.Debug("Fetching events", "calendarID", cal.id, "from", from, "to", to)

	var items []*calendar.Event
	err := cal.client.service.Events.List(cal.id).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	logger.Info("Fetched events from Google Calendar", "count", len(items), "calendarID", cal.id)
	return toEntries(items, cal.id, cal.Name()), nil
}

// toEntries keeps the timed events that block the calendar. owner is the
// calendar ID; events without a guest list belong to whoever soleAttendee names.
func toEntries(items []*calendar.Event, owner, source string) []*models.Entry {
	var entries []*models.Entry
	for _, item := range items {
		// All-day events carry Date, not DateTime.
		if item.Start == nil || item.End == nil || item.Start.DateTime == "" || item.End.DateTime == "" {
			continue
		}
		if item.Status == "cancelled" || item.Transparency == "transparent" {
			continue
		}

		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}

		entry := &models.Entry{
			ID:          item.Id,
			UID:         item.ICalUID, // same across calendars holding the meeting
			Title:       item.Summary,
			Description: item.Description,
			StartTime:   start,
			EndTime:     end,
			Location:    item.Location,
			Source:      source,
		}
		if item.Organizer != nil {
			entry.Organizer = models.NormalizeAttendee(item.Organizer.Email)
		}
		for _, a := range item.Attendees {
			if a.ResponseStatus != "declined" {
				entry.Attendees = append(entry.Attendees, models.NormalizeAttendee(a.Email))
			}
		}
		if len(item.Attendees) == 0 {
			if who := soleAttendee(item, owner); who != "" {
				entry.Attendees = []string{who}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// soleAttendee picks the person a guest-less event blocks: its organizer,
// else its creator, else the calendar ID when it is an address ("primary" is not).
func soleAttendee(item *calendar.Event, owner string) string {
	if item.Organizer != nil && item.Organizer.Email != "" {
		return models.NormalizeAttendee(item.Organizer.Email)
	}
	if item.Creator != nil && item.Creator.Email != "" {
		return models.NormalizeAttendee(item.Creator.Email)
	}
	if strings.Contains(owner, "@") {
		return models.NormalizeAttendee(owner)
	}
	return ""
}
