package medrecord

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/queue"
)

// Repository persists medical records, diagnoses and addenda.
type Repository interface {
	Create(ctx context.Context, rec *MedicalRecord, diagnoses []*Diagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	GetByQueueID(ctx context.Context, queueID uuid.UUID) (*MedicalRecord, error)
	// GetForUpdate loads the record under a row lock so edits and the lock
	// sweep cannot race.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, rec *MedicalRecord) error
	ReplaceDiagnoses(ctx context.Context, recordID uuid.UUID, diagnoses []*Diagnosis) error
	GetDiagnoses(ctx context.Context, recordID uuid.UUID) ([]*Diagnosis, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error)
	// LockStale locks every unlocked record created before cutoff and
	// returns how many rows it touched. Safe to run repeatedly.
	LockStale(ctx context.Context, cutoff, lockedAt time.Time) (int, error)

	CreateAddendum(ctx context.Context, a *Addendum) error
	GetAddendum(ctx context.Context, id uuid.UUID) (*Addendum, error)
	UpdateAddendum(ctx context.Context, a *Addendum) error
	DeleteAddendum(ctx context.Context, id uuid.UUID) error
	GetAddenda(ctx context.Context, recordID uuid.UUID) ([]*Addendum, error)
}

// VisitSource looks up the visit a record documents. Satisfied by the queue
// repository.
type VisitSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*queue.Queue, error)
}

// VitalSource finds the measurements taken during a visit. Satisfied by the
// queue package's vital sign repository.
type VitalSource interface {
	GetByQueueID(ctx context.Context, queueID uuid.UUID) (*queue.VitalSign, error)
}
