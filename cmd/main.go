package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"meetslot/internal/config"
	"meetslot/internal/google"
	"meetslot/internal/icloud"
	"meetslot/internal/ics"
	"meetslot/internal/models"
	"meetslot/internal/planner"
	"meetslot/internal/query"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "meetslot",
		Usage: "Find the times in a day when everyone invited to a meeting is free.",
		Commands: []*cli.Command{
			authCommand(),
			findCommand(),
			bookCommand(),
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				return fmt.Errorf("account name must not be empty")
			}
			tokenFile := google.TokenFile(cfg.GoogleTokenDir, accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "Day to plan, as YYYY-MM-DD. Defaults to today."},
		&cli.IntFlag{Name: "duration", Value: 30, Usage: "Meeting length in minutes."},
		&cli.StringSliceFlag{Name: "attendee", Aliases: []string{"a"}, Usage: "Mandatory attendee email. Repeatable."},
		&cli.StringSliceFlag{Name: "optional", Aliases: []string{"o"}, Usage: "Optional attendee email. Repeatable."},
		&cli.StringSliceFlag{Name: "ics", Usage: "Read busy time from a local .ics file. Repeatable."},
		&cli.StringFlag{Name: "owner", Usage: "Attendee that owns events without an attendee list in --ics files."},
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "List the free windows for a meeting.",
		Flags: append(queryFlags(),
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON."},
		),
		Action: func(c *cli.Context) error {
			env, err := setup(c, false)
			if err != nil {
				return err
			}

			plan, err := env.planner.Plan(c.Context, env.day, env.request)
			if err != nil {
				return fmt.Errorf("failed to plan meeting: %w", err)
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			printPlan(c.App.Writer, plan)
			return nil
		},
	}
}

func bookCommand() *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book the meeting into the first free window of the iCloud calendar.",
		Flags: append(queryFlags(),
			&cli.StringFlag{Name: "title", Value: "Meeting", Usage: "Title of the booked meeting."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be booked without making changes."},
		),
		Action: func(c *cli.Context) error {
			env, err := setup(c, true)
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				env.logger.Info("Performing a dry run. No changes will be made.")
			}

			plan, err := env.planner.Plan(c.Context, env.day, env.request)
			if err != nil {
				return fmt.Errorf("failed to plan meeting: %w", err)
			}

			meeting, err := env.planner.Book(c.Context, plan, c.String("title"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s %s-%s %s\n",
				meeting.StartTime.Format(time.DateOnly),
				meeting.StartTime.Format("15:04"),
				meeting.EndTime.Format("15:04"),
				meeting.Title)
			return nil
		},
	}
}

type environment struct {
	logger  *slog.Logger
	planner *planner.Planner
	day     time.Time
	request models.MeetingRequest
}

// setup loads the configuration and wires the sources, engine and planner
// for the find and book commands.
func setup(c *cli.Context, booking bool) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	refinement, err := cfg.Refinement()
	if err != nil {
		return nil, err
	}

	day := time.Now().In(loc)
	if s := c.String("date"); s != "" {
		day, err = time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid --date '%s': %w", s, err)
		}
	}

	request := models.NewMeetingRequest(c.Int("duration"), c.StringSlice("attendee")).
		WithOptional(c.StringSlice("optional")...)
	if request.Attendees.Empty() {
		logger.Warn("No mandatory attendees given; every time of day is free.")
	}

	var sources []planner.Source
	for _, path := range c.StringSlice("ics") {
		sources = append(sources, &ics.FileSource{Path: path, Owner: c.String("owner"), Location: loc})
	}

	if cfg.GoogleEnabled() {
		accounts, err := google.GetTokenAccounts(cfg.GoogleTokenDir)
		if err != nil {
			return nil, fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
		}
		for _, acc := range accounts {
			gClient, err := google.NewClient(c.Context, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleTokenDir, acc)
			if err != nil {
				return nil, fmt.Errorf("failed to create google client for account %s: %w", acc, err)
			}
			calendars, err := gClient.Calendars(c.Context, cfg.CalendarIDs())
			if err != nil {
				return nil, fmt.Errorf("failed to list calendars for account %s: %w", acc, err)
			}
			for _, cal := range calendars {
				sources = append(sources, cal)
			}
		}
		logger.Info("Initialized Google calendars for all accounts.", "accounts", len(accounts))
	}

	opts := []planner.Option{
		planner.WithLocation(loc),
		planner.WithConcurrency(cfg.FetchConcurrency),
	}

	if cfg.ICloudEnabled() {
		iClient, err := icloud.NewClient(c.Context, logger, cfg.ICloudEndpoint, cfg.ICloudUsername, cfg.ICloudPassword, cfg.ICloudCalendarName)
		if err != nil {
			return nil, fmt.Errorf("failed to create icloud client: %w", err)
		}
		iClient.SetLocation(loc)
		sources = append(sources, iClient)
		opts = append(opts, planner.WithBooker(iClient))
	}

	if booking {
		ledger, err := planner.LoadLedger(cfg.StateFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, planner.WithLedger(ledger), planner.WithDryRun(c.Bool("dry-run")))
	}

	if len(sources) == 0 {
		logger.Warn("No calendar sources configured; pass --ics or set GOOGLE_CALENDAR_IDS / ICLOUD_USERNAME.")
	}

	engine := query.NewEngine(query.WithRefinement(refinement))
	return &environment{
		logger:  logger,
		planner: planner.New(logger, sources, engine, opts...),
		day:     day,
		request: request,
	}, nil
}

func printPlan(w io.Writer, plan *planner.Plan) {
	fmt.Fprintf(w, "%s: %d event(s) considered, %d free window(s) of at least %d min\n",
		plan.Day.Format(time.DateOnly), plan.Events, len(plan.Windows), plan.Request.Duration)
	for _, window := range plan.Windows {
		fmt.Fprintf(w, "  %s (%d min)\n", window.Clock(), window.Duration())
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
