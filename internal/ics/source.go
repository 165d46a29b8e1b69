package ics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meetslot/internal/models"
)

// FileSource reads entries from a local .ics file, e.g. a calendar export.
type FileSource struct {
	Path     string
	Owner    string
	Location *time.Location
}

// Name identifies the source in logs.
func (s *FileSource) Name() string {
	return "ics-" + filepath.Base(s.Path)
}

// Entries returns the busy entries of the file that overlap [from, to).
func (s *FileSource) Entries(_ context.Context, from, to time.Time) ([]*models.Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer f.Close()

	entries, err := Decode(f, Options{
		Owner:    s.Owner,
		Location: s.Location,
		From:     from,
		To:       to,
		Source:   s.Name(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return entries, nil
}
