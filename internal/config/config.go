// Package config loads meetslot settings from the environment, an optional
// .env file and an optional meetslot.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"meetslot/internal/query"
)

// Config holds all configuration values.
type Config struct {
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	PrimaryTimezone string `mapstructure:"PRIMARY_TIMEZONE"`
	StateFile       string `mapstructure:"STATE_FILE"`

	// Query behavior.
	OptionalRefinement string `mapstructure:"OPTIONAL_REFINEMENT"`
	FetchConcurrency   int    `mapstructure:"FETCH_CONCURRENCY"`

	// Google Calendar.
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleCalendarIDs  string `mapstructure:"GOOGLE_CALENDAR_IDS"`
	GoogleTokenDir     string `mapstructure:"GOOGLE_TOKEN_DIR"`

	// iCloud (or any CalDAV server).
	ICloudUsername     string `mapstructure:"ICLOUD_USERNAME"`
	ICloudPassword     string `mapstructure:"ICLOUD_APP_SPECIFIC_PASSWORD"`
	ICloudCalendarName string `mapstructure:"ICLOUD_CALENDAR_NAME"`
	ICloudEndpoint     string `mapstructure:"ICLOUD_CALDAV_ENDPOINT"`
}

// defaults lists every key with its default; viper only unmarshals keys it knows about.
var defaults = map[string]any{
	"LOG_LEVEL":                    "info",
	"PRIMARY_TIMEZONE":             "UTC",
	"STATE_FILE":                   "meetslot-state.json",
	"OPTIONAL_REFINEMENT":          "trim",
	"FETCH_CONCURRENCY":            4,
	"GOOGLE_CLIENT_ID":             "",
	"GOOGLE_CLIENT_SECRET":         "",
	"GOOGLE_CALENDAR_IDS":          "",
	"GOOGLE_TOKEN_DIR":             ".",
	"ICLOUD_USERNAME":              "",
	"ICLOUD_APP_SPECIFIC_PASSWORD": "",
	"ICLOUD_CALENDAR_NAME":         "",
	"ICLOUD_CALDAV_ENDPOINT":       "https://caldav.icloud.com/",
}

// Load reads the configuration. Environment variables take precedence over
// meetslot.yaml; a missing .env or config file is not an error.
func Load() (*Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("meetslot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Location resolves PrimaryTimezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.PrimaryTimezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tz, err)
	}
	return loc, nil
}

// Refinement resolves OptionalRefinement.
func (c *Config) Refinement() (query.Refinement, error) {
	switch strings.ToLower(strings.TrimSpace(c.OptionalRefinement)) {
	case "", "trim":
		return query.RefineTrim, nil
	case "drop":
		return query.RefineDrop, nil
	default:
		return query.RefineTrim, fmt.Errorf("invalid OPTIONAL_REFINEMENT '%s': want trim or drop", c.OptionalRefinement)
	}
}

// CalendarIDs splits GoogleCalendarIDs on commas. A lone "*" asks for every
// calendar of each account.
func (c *Config) CalendarIDs() []string {
	var ids []string
	for _, id := range strings.Split(c.GoogleCalendarIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GoogleEnabled reports whether Google calendars should be consulted.
func (c *Config) GoogleEnabled() bool {
	return len(c.CalendarIDs()) > 0
}

// ICloudEnabled reports whether the CalDAV calendar should be consulted.
func (c *Config) ICloudEnabled() bool {
	return c.ICloudUsername != ""
}
