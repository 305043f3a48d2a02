package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/petri/pkg/domain"
)

// Store implements ports.SubjectStore in memory.
// Safe for concurrent use.
type Store struct {
	subjects map[string]*domain.Subject
	mu       sync.RWMutex
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		subjects: make(map[string]*domain.Subject),
	}
}

// Seed upserts subjects directly, bypassing the batch semantics of Write.
// Intended for tests and examples.
func (s *Store) Seed(subjects ...domain.Subject) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range subjects {
		s.subjects[subjects[i].ID] = subjects[i].Clone()
	}
	return s
}

// Fetch returns all stored subjects ordered by ID.
func (s *Store) Fetch(ctx context.Context) ([]domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		// Copy on read so callers can't mutate store state directly by pointer.
		out = append(out, *subject.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Write upserts the batch. The in-memory map makes the batch trivially atomic.
func (s *Store) Write(ctx context.Context, subjects []domain.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range subjects {
		s.subjects[subjects[i].ID] = subjects[i].Clone()
	}
	return nil
}

// Get retrieves a single subject.
func (s *Store) Get(ctx context.Context, id string) (*domain.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subject, ok := s.subjects[id]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return subject.Clone(), nil
}

// Delete removes a subject. Deleting an unknown ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subjects, id)
	return nil
}

// Len reports the number of stored subjects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subjects)
}
