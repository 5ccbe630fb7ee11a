package roster

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistent store for the roster. Implementations must
// return ErrNotFound for missing ids and ErrVersionConflict for stale
// updates; all other failures are surfaced to the caller unmodified.
type Repository interface {
	Create(ctx context.Context, p *PatientRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
	// Update writes p if and only if the stored version equals p.Version,
	// then bumps the version.
	Update(ctx context.Context, p *PatientRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns records matching the filter, unordered; the service
	// applies the severity ordering.
	List(ctx context.Context, f ListFilter) ([]*PatientRecord, error)

	AddDispositionEvent(ctx context.Context, e *DispositionEvent) error
	ListDispositionEvents(ctx context.Context, patientID uuid.UUID) ([]*DispositionEvent, error)
}

// ListFilter narrows a roster listing. Zero value matches everything.
type ListFilter struct {
	// Search is matched case-insensitively as a substring against the
	// patient's name parts, bib number and motive.
	Search string
	Status *TriageStatus
}
