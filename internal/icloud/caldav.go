package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"meetslot/internal/ics"
	"meetslot/internal/models"
)

const (
	// DefaultEndpoint is the iCloud CalDAV endpoint.
	DefaultEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "meetslot/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient is a client for interacting with a CalDAV server (iCloud).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarPath string
	username     string
	location     *time.Location
}

// NewClient creates and initializes a new CalDAVClient and locates the named calendar.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (*CalDAVClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
		username:     username,
		location:     time.UTC,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// SetLocation sets the zone floating times are read in.
func (c *CalDAVClient) SetLocation(loc *time.Location) {
	c.location = loc
}

// Name identifies the calendar in logs.
func (c *CalDAVClient) Name() string {
	return "caldav-" + path.Base(strings.TrimSuffix(c.calendarPath, "/"))
}

// Entries returns the busy entries of the calendar that overlap [from, to).
func (c *CalDAVClient) Entries(ctx context.Context, from, to time.Time) ([]*models.Entry, error) {
	c.logger.Debug("Querying CalDAV calendar", "path", c.calendarPath, "from", from, "to", to)

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, eventQuery(from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	opts := ics.Options{
		Owner:    c.username,
		Location: c.location,
		From:     from,
		To:       to,
		Source:   c.Name(),
	}
	var entries []*models.Entry
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		objEntries, err := ics.EntriesFromCalendar(obj.Data, opts)
		if err != nil {
			c.logger.Warn("Skipping unreadable calendar object", "path", obj.Path, "error", err)
			continue
		}
		entries = append(entries, objEntries...)
	}

	c.logger.Info("Successfully fetched events from CalDAV calendar", "count", len(entries), "objects", len(objects))
	return entries, nil
}

// eventQuery selects whole VEVENTs with an instance inside [from, to).
func eventQuery(from, to time.Time) *caldav.CalendarQuery {
	return &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			Comps: []caldav.CalendarCompRequest{{
				Name:     "VEVENT",
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from,
				End:   to,
			}},
		},
	}
}

// BookMeeting creates the meeting as a new event in the calendar.
func (c *CalDAVClient) BookMeeting(ctx context.Context, entry *models.Entry) error {
	c.logger.Debug("Booking meeting in CalDAV calendar", "title", entry.Title, "uid", entry.UID)

	// The event path must be relative to the endpoint for the webdav client.
	eventPath := path.Join(c.calendarPath, fmt.Sprintf("%s.ics", entry.UID))

	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	if err := ics.Encode(writer, entry); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}

	c.logger.Info("Successfully booked meeting", "title", entry.Title, "start", entry.StartTime)
	return nil
}

// findCalendar walks principal, home set and calendars and returns the path of
// the calendar called name, or of the first event calendar when name is empty.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if name == "" && holdsEvents(cal) {
			return cal.Path, nil
		}
		if name != "" && cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// holdsEvents reports whether cal accepts VEVENTs. Servers that do not
// advertise a component set accept everything.
func holdsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	return slices.Contains(cal.SupportedComponentSet, "VEVENT")
}
