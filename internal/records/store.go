// Package records holds the in-memory record store for a session.
//
// The store is the single owner of logged meals. Records are created through
// Create only; there is no update or delete. All derived views (filter, group,
// sums) are computed from a consistent snapshot under a read lock.
package records

import (
	"fmt"
	"sync"

	"mealtrack/internal/core"
)

// Predicate selects records for aggregation.
type Predicate func(core.Record) bool

// Group is the set of records sharing one calendar date.
type Group struct {
	Key     string        `json:"key"`
	Date    core.Date     `json:"date"`
	Records []core.Record `json:"records"`
}

// Store is an ordered, append-only collection of records, most recent first.
type Store struct {
	mu      sync.RWMutex
	items   []core.Record
	nextID  int64
	version uint64
}

// Option configures a Store.
type Option func(*Store)

// WithSeed pre-loads records in the given order (first = most recent).
func WithSeed(seed ...core.Record) Option {
	return func(s *Store) {
		s.items = append(s.items, seed...)
	}
}

// WithNextID sets the id assigned to the next created record. It never goes
// below the highest seeded id + 1.
func WithNextID(id int64) Option {
	return func(s *Store) {
		s.nextID = id
	}
}

// New creates a store. Ids continue from the highest seeded id + 1 unless
// WithNextID asks for a larger one.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	var maxID int64
	for _, r := range s.items {
		maxID = max(maxID, r.ID)
	}
	s.nextID = max(s.nextID, maxID+1)
	return s
}

// Create stores a new record built from the draft and returns it.
//
// The draft date is decoded with core.Decode; a malformed date fails with
// core.ErrInvalidDateFormat and leaves the store unchanged. Calories are stored
// as entered, negative values included.
func (s *Store) Create(d core.Draft) (core.Record, error) {
	date, err := core.Decode(d.Date)
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}
	var rating *int
	if d.Rating != nil {
		v := *d.Rating
		rating = &v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := core.Record{
		ID:       s.nextID,
		Date:     date,
		Meal:     d.Meal,
		Content:  d.Content,
		Calories: d.Calories,
		Rating:   rating,
		Notes:    d.Notes,
	}
	s.nextID++
	s.version++
	s.items = append([]core.Record{r}, s.items...)
	return r, nil
}

// All returns every record, most recently created first.
func (s *Store) All() []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Record(nil), s.items...)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// NextID returns the id the next Create will assign.
func (s *Store) NextID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Version changes every time a record is created. Views derived from the
// store are current only while the version they were built at still holds.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Select returns the records matching pred, in store order.
func (s *Store) Select(pred Predicate) []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Record
	for _, r := range s.items {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByDate returns the records on the given calendar date, in store order.
func (s *Store) FilterByDate(d core.Date) []core.Record {
	return s.Select(OnDate(d))
}

// GroupByDate partitions all records by calendar date.
//
// Groups appear in the order their first record is met in store order, and
// records keep store order within a group. The key is the M/D/YYYY rendering.
func (s *Store) GroupByDate() []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[string]int)
	var groups []Group
	for _, r := range s.items {
		key := r.Date.LocaleString()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, Date: r.Date})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// SumCalories sums calories over the records matching pred. Negative
// (invalid) amounts are included.
func (s *Store) SumCalories(pred Predicate) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, r := range s.items {
		if pred(r) {
			total += r.Calories
		}
	}
	return total
}

// Count returns the number of records matching pred.
func (s *Store) Count(pred Predicate) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.items {
		if pred(r) {
			n++
		}
	}
	return n
}
