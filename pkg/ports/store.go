package ports

import (
	"context"

	"github.com/aretw0/petri/pkg/domain"
)

// SubjectSource yields the subject batch a run starts from.
type SubjectSource interface {
	// Fetch returns every subject currently known to the source. The engine
	// calls it once at the start of each run; the returned slice is owned by
	// the caller.
	Fetch(ctx context.Context) ([]domain.Subject, error)
}

// SubjectSink persists an updated subject batch.
type SubjectSink interface {
	// Write upserts the batch by subject ID. The write is all-or-nothing:
	// a failed call must not leave a partially updated batch behind, and an
	// upsert must never erase a previously recorded group assignment.
	Write(ctx context.Context, subjects []domain.Subject) error
}

// SubjectStore combines source and sink over one backing store, plus point
// lookups and administrative removal. One store instance is scoped to one
// experiment.
type SubjectStore interface {
	SubjectSource
	SubjectSink

	// Get retrieves one subject by ID.
	// Returns domain.ErrSubjectNotFound if the subject does not exist.
	Get(ctx context.Context, id string) (*domain.Subject, error)

	// Delete removes a subject. Retirement is an administrative concern; the
	// engine itself never deletes.
	Delete(ctx context.Context, id string) error
}
