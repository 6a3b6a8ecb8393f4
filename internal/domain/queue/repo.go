package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists queue entries. It also satisfies the schedule
// package's QueueCounter so the schedule gate can see dependent entries.
type Repository interface {
	Create(ctx context.Context, q *Queue) error
	GetByID(ctx context.Context, id uuid.UUID) (*Queue, error)
	// GetForUpdate loads the entry under a row lock so state transitions
	// are single-writer.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Queue, error)
	Update(ctx context.Context, q *Queue) error
	HasActiveVisit(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time) (bool, error)
	// ListByDoctorDate returns the day's queue, urgent entries first, then
	// ascending queue number.
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Queue, error)

	CountByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
	CountNonWaiting(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
	MoveWaiting(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int, error)
}

// VitalSignRepository persists vital sign measurements.
type VitalSignRepository interface {
	Create(ctx context.Context, v *VitalSign) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalSign, error)
	GetByQueueID(ctx context.Context, queueID uuid.UUID) (*VitalSign, error)
	Update(ctx context.Context, v *VitalSign) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScheduleSource answers whether a doctor accepts visits on a date.
// Satisfied by the scheduling service.
type ScheduleSource interface {
	AvailableOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
}
