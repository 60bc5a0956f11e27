package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

// seqIDs returns a generator yielding id-1, id-2, ...
func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type storeFactory func(t *testing.T) Store

// implementations runs every behavioral test against both stores.
func implementations() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) Store {
			path := filepath.Join(t.TempDir(), "data", "searchHistory.json")
			return NewFileStore(path, WithClock(stepClock(start)), WithIDGenerator(seqIDs()))
		},
		"memory": func(t *testing.T) Store {
			return NewMemoryStore(WithClock(stepClock(start)), WithIDGenerator(seqIDs()))
		},
	}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestStore_ListNewestFirst(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			_, err := s.Record("Tokyo")
			require.NoError(t, err)
			_, err = s.Record("Osaka")
			require.NoError(t, err)

			assert.Equal(t, []string{"Osaka", "Tokyo"}, names(s.List()))
		})
	}
}

func TestStore_RecordDeduplicatesCaseInsensitive(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			first, err := s.Record("Paris")
			require.NoError(t, err)
			_, err = s.Record("Berlin")
			require.NoError(t, err)
			again, err := s.Record("paris")
			require.NoError(t, err)

			assert.Equal(t, first.ID, again.ID)
			assert.Equal(t, "Paris", again.Name)
			assert.True(t, again.Timestamp.After(first.Timestamp))

			list := s.List()
			require.Len(t, list, 2)
			assert.Equal(t, []string{"Paris", "Berlin"}, names(list))
			assert.True(t, list[0].Timestamp.Equal(again.Timestamp))
		})
	}
}

func TestStore_CapEvictsLeastRecentlyTouched(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			for _, city := range []string{"A", "B", "C", "D", "E", "F"} {
				_, err := s.Record(city)
				require.NoError(t, err)
			}

			list := s.List()
			require.Len(t, list, MaxEntries)
			assert.Equal(t, []string{"F", "E", "D", "C", "B"}, names(list))
		})
	}
}

func TestStore_CapKeepsRefreshedEntry(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			for _, city := range []string{"A", "B", "C", "D", "E", "a", "F"} {
				_, err := s.Record(city)
				require.NoError(t, err)
			}

			assert.Equal(t, []string{"F", "A", "E", "D", "C"}, names(s.List()))
		})
	}
}

// adjustableClock returns a fixed time that the test can move, including
// backwards.
type adjustableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *adjustableClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *adjustableClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func TestStore_RecordSurvivesClockStepBack(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	factories := map[string]func(t *testing.T, now func() time.Time) Store{
		"file": func(t *testing.T, now func() time.Time) Store {
			path := filepath.Join(t.TempDir(), "searchHistory.json")
			return NewFileStore(path, WithClock(now), WithIDGenerator(seqIDs()))
		},
		"memory": func(_ *testing.T, now func() time.Time) Store {
			return NewMemoryStore(WithClock(now), WithIDGenerator(seqIDs()))
		},
	}

	for name, newStore := range factories {
		t.Run(name, func(t *testing.T) {
			clock := &adjustableClock{}
			s := newStore(t, clock.now)

			for i, city := range []string{"A", "B", "C", "D", "E"} {
				clock.set(future.Add(time.Duration(i) * time.Minute))
				_, err := s.Record(city)
				require.NoError(t, err)
			}

			clock.set(start)
			tokyo, err := s.Record("Tokyo")
			require.NoError(t, err)

			list := s.List()
			require.Len(t, list, MaxEntries)
			assert.Equal(t, []string{"E", "D", "C", "B", "Tokyo"}, names(list))
			assert.Equal(t, tokyo.ID, list[MaxEntries-1].ID)
		})
	}
}

func TestStore_RemoveUnknownIDIsNoop(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			_, err := s.Record("Lima")
			require.NoError(t, err)
			before := s.List()

			require.NoError(t, s.Remove("does-not-exist"))
			assert.Equal(t, before, s.List())
		})
	}
}

func TestStore_Remove(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			lima, err := s.Record("Lima")
			require.NoError(t, err)
			_, err = s.Record("Quito")
			require.NoError(t, err)

			require.NoError(t, s.Remove(lima.ID))
			assert.Equal(t, []string{"Quito"}, names(s.List()))
		})
	}
}

func TestStore_RecordEmptyName(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			_, err := s.Record(" ")
			assert.ErrorIs(t, err, ErrEmptyName)
			assert.Empty(t, s.List())
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for name, newStore := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			// Clock: A=12:00, B=12:01, C=12:02; Prune reads 12:03.
			for _, city := range []string{"A", "B", "C"} {
				_, err := s.Record(city)
				require.NoError(t, err)
			}

			removed, err := s.Prune(90 * time.Second)
			require.NoError(t, err)
			assert.Equal(t, 2, removed)
			assert.Equal(t, []string{"C"}, names(s.List()))

			removed, err = s.Prune(0)
			require.NoError(t, err)
			assert.Zero(t, removed)
		})
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	list := s.List()
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchHistory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, WithClock(stepClock(start)), WithIDGenerator(seqIDs()))
	assert.Empty(t, s.List())

	// A write after a corrupt read starts over from an empty list.
	_, err := s.Record("Rome")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome"}, names(s.List()))
}

func TestFileStore_OnDiskFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "searchHistory.json")
	s := NewFileStore(path, WithClock(stepClock(start)), WithIDGenerator(seqIDs()))

	_, err := s.Record("Tokyo")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "id-1", raw[0]["id"])
	assert.Equal(t, "Tokyo", raw[0]["name"])
	assert.Equal(t, "2024-05-01T12:00:00Z", raw[0]["timestamp"])
	assert.Contains(t, string(data), "\n  {")

	// Only the history file remains; the temp file was renamed into place.
	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileStore_ReadsUnorderedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchHistory.json")
	content := `[
  {"id": "1", "name": "Old", "timestamp": "2024-01-01T00:00:00.000Z"},
  {"id": "2", "name": "New", "timestamp": "2024-03-01T00:00:00.000Z"},
  {"id": "3", "name": "Mid", "timestamp": "2024-02-01T00:00:00.000Z"}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	assert.Equal(t, []string{"New", "Mid", "Old"}, names(NewFileStore(path).List()))
}

func TestFileStore_RecordKeepsNewEntryOverFutureDatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchHistory.json")
	content := `[
  {"id": "1", "name": "A", "timestamp": "2030-01-01T00:00:00Z"},
  {"id": "2", "name": "B", "timestamp": "2030-01-02T00:00:00Z"},
  {"id": "3", "name": "C", "timestamp": "2030-01-03T00:00:00Z"},
  {"id": "4", "name": "D", "timestamp": "2030-01-04T00:00:00Z"},
  {"id": "5", "name": "E", "timestamp": "2030-01-05T00:00:00Z"}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := NewFileStore(path, WithClock(stepClock(start)), WithIDGenerator(seqIDs()))
	e, err := s.Record("Tokyo")
	require.NoError(t, err)

	// Reload from disk to check what was persisted.
	list := NewFileStore(path).List()
	require.Len(t, list, MaxEntries)
	assert.Contains(t, names(list), "Tokyo")
	assert.NotContains(t, names(list), "A")
	assert.Equal(t, e.ID, list[MaxEntries-1].ID)
}

func TestFileStore_SizeObserver(t *testing.T) {
	var sizes []int
	s := NewFileStore(filepath.Join(t.TempDir(), "h.json"),
		WithSizeObserver(func(n int) { sizes = append(sizes, n) }))

	_, err := s.Record("A")
	require.NoError(t, err)
	_, err = s.Record("B")
	require.NoError(t, err)
	require.NoError(t, s.Remove("missing"))

	assert.Equal(t, []int{1, 2, 2}, sizes)
}

func TestFileStore_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent "directory" is a regular file, so mkdir fails.
	s := NewFileStore(filepath.Join(blocker, "searchHistory.json"))

	_, err := s.Record("Paris")
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "mkdir", storageErr.Op)
	assert.Empty(t, s.List())
}

func TestFileStore_ConcurrentRecordsAreSerialized(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "h.json"))

	var wg sync.WaitGroup
	for i := 0; i < MaxEntries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Record(fmt.Sprintf("city-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.List(), MaxEntries)
}
