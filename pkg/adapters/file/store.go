package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aretw0/petri/pkg/domain"
)

// Store implements ports.SubjectStore on the local filesystem.
// All subjects of one experiment live in a single JSON document, which keeps
// runs inspectable with nothing but a text editor.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a file store for the given experiment.
// If dir is empty, it defaults to ".petri/experiments".
func New(dir, experiment string) (*Store, error) {
	if experiment == "" {
		return nil, fmt.Errorf("experiment cannot be empty")
	}
	if dir == "" {
		dir = filepath.Join(".petri", "experiments")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure experiment directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, experiment+".json")}, nil
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// Fetch returns all stored subjects ordered by ID.
func (s *Store) Fetch(ctx context.Context) ([]domain.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, err := s.load()
	if err != nil {
		return nil, err
	}
	subjects := make([]domain.Subject, 0, len(byID))
	for _, subject := range byID {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

// Write upserts the batch into the document.
func (s *Store) Write(ctx context.Context, subjects []domain.Subject) error {
	if len(subjects) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, err := s.load()
	if err != nil {
		return err
	}
	for i := range subjects {
		byID[subjects[i].ID] = *subjects[i].Clone()
	}
	return s.flush(byID)
}

// Get retrieves a single subject.
func (s *Store) Get(ctx context.Context, id string) (*domain.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, err := s.load()
	if err != nil {
		return nil, err
	}
	subject, ok := byID[id]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return &subject, nil
}

// Delete removes a subject. Deleting an unknown ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := byID[id]; !ok {
		return nil
	}
	delete(byID, id)
	return s.flush(byID)
}

func (s *Store) load() (map[string]domain.Subject, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]domain.Subject{}, nil
		}
		return nil, fmt.Errorf("failed to read subject file: %w", err)
	}

	var subjects []domain.Subject
	if err := json.Unmarshal(data, &subjects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subjects: %w", err)
	}

	byID := make(map[string]domain.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}
	return byID, nil
}

func (s *Store) flush(byID map[string]domain.Subject) error {
	subjects := make([]domain.Subject, 0, len(byID))
	for _, subject := range byID {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })

	data, err := json.MarshalIndent(subjects, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal subjects: %w", err)
	}

	// Write to a temp file and rename so a reader never sees a partial batch.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write subject file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace subject file: %w", err)
	}
	return nil
}
