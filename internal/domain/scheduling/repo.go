package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists schedules.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Schedule, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time, limit, offset int) ([]*Schedule, int, error)
}

// QueueCounter is the view of the visit queue the schedule gate needs: it
// blocks edits and availability toggles while dependent queue entries exist,
// and rewrites waiting entries when a schedule moves to another day. The
// queue package's repository satisfies it.
type QueueCounter interface {
	CountByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
	CountNonWaiting(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
	MoveWaiting(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int, error)
}
