package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Booking is what the ledger remembers about a booked meeting.
type Booking struct {
	UID   string    `json:"uid"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Ledger keeps track of which meetings have been booked, keyed by Plan key.
type Ledger struct {
	mu      sync.Mutex
	path    string
	entries map[string]Booking
}

// LoadLedger loads the ledger from path. A missing file yields an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: make(map[string]Booking)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to load booking ledger: %w", err)
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, fmt.Errorf("failed to parse booking ledger: %w", err)
	}
	if l.entries == nil {
		l.entries = make(map[string]Booking)
	}
	return l, nil
}

// Lookup returns the booking recorded for key.
func (l *Ledger) Lookup(key string) (Booking, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.entries[key]
	return b, ok
}

// Record remembers that key was booked as b.
func (l *Ledger) Record(key string, b Booking) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = b
}

// Save writes the ledger to its file.
func (l *Ledger) Save() error {
	l.mu.Lock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal booking ledger: %w", err)
	}
	return os.WriteFile(l.path, data, 0644)
}
