package overrides

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/normalize"
)

// FieldSentiment is the only field that can currently be overridden
const FieldSentiment = "sentiment"

// Mode selects where overrides live
type Mode string

const (
	// ModeMemory keeps overrides local to the running service
	ModeMemory Mode = "memory"
	// ModeRemote also writes each override back to the backend
	ModeRemote Mode = "remote"
)

// Edit is one entry of a record's edit history
type Edit struct {
	ID       string    `json:"id"`
	RecordID string    `json:"recordId"`
	Field    string    `json:"field"`
	OldValue string    `json:"from"`
	NewValue string    `json:"to"`
	Editor   string    `json:"user"`
	At       time.Time `json:"at"`
}

// Store holds sentiment overrides and their history, keyed by record id
type Store struct {
	mu        sync.RWMutex
	current   map[string]models.Sentiment
	history   map[string][]Edit
	locks     map[string]*sync.Mutex
	persister Persister
	journal   Journal
	now       func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithPersister writes every override to the backend before applying it
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithJournal appends every applied edit to a durable log
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty override store
func NewStore(opts ...Option) *Store {
	s := &Store{
		current: make(map[string]models.Sentiment),
		history: make(map[string][]Edit),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode reports whether overrides are sent to the backend
func (s *Store) Mode() Mode {
	if s.persister != nil {
		return ModeRemote
	}
	return ModeMemory
}

// recordLock returns the mutex serializing edits of one record
func (s *Store) recordLock(recordID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[recordID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[recordID] = l
	}
	return l
}

// Apply sets the sentiment of a record. The old value is the current
// override, or upstream when the record has none. Both values are
// normalized; an unchanged value is a no-op and returns false.
// Edits of the same record are serialized, including the remote write.
// In remote mode a persistence failure leaves the store untouched.
func (s *Store) Apply(ctx context.Context, recordID string, upstream, to string, editor string) (Edit, bool, error) {
	lock := s.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	oldValue, ok := s.Current(recordID)
	if !ok {
		oldValue = normalize.Sentiment(upstream)
	}
	newValue := normalize.Sentiment(to)
	if oldValue == newValue {
		return Edit{}, false, nil
	}

	if s.persister != nil {
		if err := s.persister.UpdateSentiment(ctx, recordID, newValue); err != nil {
			return Edit{}, false, fmt.Errorf("failed to persist override for %s: %w", recordID, err)
		}
	}

	edit := Edit{
		ID:       uuid.New().String(),
		RecordID: recordID,
		Field:    FieldSentiment,
		OldValue: string(oldValue),
		NewValue: string(newValue),
		Editor:   editor,
		At:       s.now().UTC(),
	}

	s.mu.Lock()
	s.current[recordID] = newValue
	s.history[recordID] = append(s.history[recordID], edit)
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Append(edit); err != nil {
			// the override is live already; a lost journal entry only affects restarts
			logrus.Errorf("Failed to journal override %s for record %s: %v", edit.ID, recordID, err)
		}
	}

	logrus.Debugf("Sentiment of %s changed %s -> %s by %s", recordID, oldValue, newValue, editor)
	return edit, true, nil
}

// Current returns the override for a record, if any
func (s *Store) Current(id string) (models.Sentiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.current[id]
	return v, ok
}

// History returns a copy of the record's edits, oldest first
func (s *Store) History(id string) []Edit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edits := make([]Edit, len(s.history[id]))
	copy(edits, s.history[id])
	return edits
}

// Len returns the number of overridden records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.current)
}

// Clear drops all overrides and history
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = make(map[string]models.Sentiment)
	s.history = make(map[string][]Edit)
}

// Replay rebuilds state from journaled edits, in order. Edits of other
// fields are kept in history but do not change the current value.
func (s *Store) Replay(edits []Edit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range edits {
		s.history[e.RecordID] = append(s.history[e.RecordID], e)
		if e.Field == FieldSentiment {
			s.current[e.RecordID] = normalize.Sentiment(e.NewValue)
		}
	}
}
