package counter

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyExists is returned by Create when the name is taken
	ErrAlreadyExists = errors.New("counter already exists")

	// ErrNotFound is returned by Read and Increment when there is no counter with that name
	ErrNotFound = errors.New("counter does not exist")
)

// Counter is a snapshot of a named count
type Counter struct {
	Name  string `json:"name"`
	Value int64  `json:"counter"`
}

// Store is the set of operations available on a collection of named counters
type Store interface {
	Create(name string) (Counter, error)
	Read(name string) (int64, error)
	Increment(name string) (int64, error)
	Delete(name string)
	List() []Counter
	ResetAll()
	Len() int
}

// entry holds the live value for one name
type entry struct {
	count atomic.Int64
}

// MapStore keeps counters in a sync.Map with one atomic value per name,
// so operations on different names never contend with each other.
type MapStore struct {
	m sync.Map // string -> *entry
}

// New returns pointer to an empty MapStore
func New() *MapStore {
	return &MapStore{}
}

// Create adds a counter with value zero, unless one with that name already exists
func (s *MapStore) Create(name string) (Counter, error) {

	if _, loaded := s.m.LoadOrStore(name, &entry{}); loaded {
		return Counter{}, ErrAlreadyExists
	}

	return Counter{Name: name, Value: 0}, nil
}

// Read returns the current value of the named counter
func (s *MapStore) Read(name string) (int64, error) {

	e, ok := s.load(name)

	if !ok {
		return 0, ErrNotFound
	}

	return e.count.Load(), nil
}

// Increment adds one to the named counter and returns the new value
func (s *MapStore) Increment(name string) (int64, error) {

	e, ok := s.load(name)

	if !ok {
		return 0, ErrNotFound
	}

	return e.count.Add(1), nil
}

// Delete removes the named counter; deleting a name that is not there does nothing
func (s *MapStore) Delete(name string) {
	s.m.Delete(name)
}

// List returns every counter, sorted by name. Each value is read atomically,
// but the list as a whole is not a single point-in-time view.
func (s *MapStore) List() []Counter {

	counters := []Counter{}

	s.m.Range(func(k, v any) bool {
		counters = append(counters, Counter{
			Name:  k.(string),
			Value: v.(*entry).count.Load(),
		})
		return true
	})

	sort.Slice(counters, func(i, j int) bool {
		return counters[i].Name < counters[j].Name
	})

	return counters
}

// ResetAll removes every counter
func (s *MapStore) ResetAll() {
	s.m.Clear()
}

// Len returns the number of counters currently held
func (s *MapStore) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (s *MapStore) load(name string) (*entry, bool) {
	v, ok := s.m.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}
