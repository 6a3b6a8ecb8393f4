package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/medrecord"
)

// Repository persists prescriptions and their drug lines.
type Repository interface {
	Create(ctx context.Context, rx *Prescription, items []*Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByRecordID(ctx context.Context, recordID uuid.UUID) (*Prescription, error)
	// GetForUpdate loads the prescription under a row lock so a concurrent
	// edit and dispense cannot interleave.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, rx *Prescription) error
	ReplaceItems(ctx context.Context, prescriptionID uuid.UUID, items []*Item) error
	GetItems(ctx context.Context, prescriptionID uuid.UUID) ([]*Item, error)
}

// RecordSource looks up the medical record a prescription belongs to.
// Satisfied by the medrecord repository.
type RecordSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*medrecord.MedicalRecord, error)
}
