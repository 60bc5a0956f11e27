package history

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxEntries is the number of recent searches kept.
const MaxEntries = 5

// ErrEmptyName is returned when recording a search without a name.
var ErrEmptyName = errors.New("history: name is empty")

// Entry is one recently searched location.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the contract shared by the file and memory implementations.
type Store interface {
	// List returns entries newest first. It never fails; unreadable
	// storage yields an empty list.
	List() []Entry
	// Record adds name or refreshes the existing entry with the same
	// case-insensitive name.
	Record(name string) (Entry, error)
	// Remove drops the entry with id. Unknown ids are not an error.
	Remove(id string) error
	// Prune drops entries last touched more than maxAge ago and reports
	// how many were removed.
	Prune(maxAge time.Duration) (int, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
	observer func(size int)
}

func defaultOptions() options {
	return options{
		log:      zerolog.Nop(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		observer: func(int) {},
	}
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l.With().Str("component", "history").Logger() }
}

// WithClock overrides the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides how new entry ids are produced.
func WithIDGenerator(f func() string) Option {
	return func(o *options) { o.newID = f }
}

// WithSizeObserver registers a callback invoked with the entry count after
// every successful write.
func WithSizeObserver(f func(size int)) Option {
	return func(o *options) { o.observer = f }
}

// sortNewestFirst orders entries by Timestamp descending. Ties keep their
// current relative order.
func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

// applyRecord returns the list after recording name, plus the touched entry.
func applyRecord(entries []Entry, name string, now time.Time, newID func() string) ([]Entry, Entry) {
	for i := range entries {
		if strings.EqualFold(entries[i].Name, name) {
			entries[i].Timestamp = now
			return entries, entries[i]
		}
	}

	// The new entry always survives, even when stored timestamps are ahead
	// of the clock. The rest keep their most recently touched.
	sortNewestFirst(entries)
	if len(entries) > MaxEntries-1 {
		entries = entries[:MaxEntries-1]
	}

	e := Entry{ID: newID(), Name: name, Timestamp: now}
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, e)
	out = append(out, entries...)
	return out, e
}

func applyRemove(entries []Entry, id string) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func applyPrune(entries []Entry, cutoff time.Time) ([]Entry, int) {
	out := entries[:0]
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, len(entries) - len(out)
}
