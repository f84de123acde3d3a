package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/eugenenazirov/specd/internal/specfile"
)

var (
	// ErrNoSpec indicates no spec has been stored yet, or a nil spec was offered.
	ErrNoSpec = errors.New("no spec loaded")
)

// Snapshot is the stored spec together with its revision metadata.
type Snapshot struct {
	Spec      *specfile.Spec
	Source    string
	Revision  uint64
	UpdatedAt time.Time
}

// Storage provides access to the spec currently served.
type Storage interface {
	Get() (Snapshot, error)
	Set(spec *specfile.Spec, source string) error
}

// MemoryStorage keeps the current snapshot in-memory and guards access with a RWMutex.
// Specs are immutable, so handing the same pointer to several readers is safe.
type MemoryStorage struct {
	mu       sync.RWMutex
	snapshot Snapshot
	clock    func() time.Time
}

// Option configures MemoryStorage.
type Option func(*MemoryStorage)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current snapshot.
func (s *MemoryStorage) Get() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot.Spec == nil {
		return Snapshot{}, ErrNoSpec
	}
	return s.snapshot, nil
}

// Set replaces the current spec and bumps the revision.
func (s *MemoryStorage) Set(spec *specfile.Spec, source string) error {
	if spec == nil {
		return ErrNoSpec
	}

	s.mu.Lock()
	s.snapshot = Snapshot{
		Spec:      spec,
		Source:    source,
		Revision:  s.snapshot.Revision + 1,
		UpdatedAt: s.clock(),
	}
	s.mu.Unlock()

	return nil
}
