package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
)

type Service struct {
	schedules Repository
	queues    QueueCounter
	tx        db.TxRunner
}

func NewService(schedules Repository, queues QueueCounter, tx db.TxRunner) *Service {
	return &Service{schedules: schedules, queues: queues, tx: tx}
}

func (s *Service) validate(sched *Schedule) error {
	if sched.DoctorID == uuid.Nil {
		return clinicerr.New(clinicerr.Validation, "doctor_id is required")
	}
	if sched.Date.IsZero() {
		return clinicerr.New(clinicerr.Validation, "date is required")
	}
	if !ValidTimeOfDay(sched.StartTime) || !ValidTimeOfDay(sched.EndTime) {
		return clinicerr.New(clinicerr.Validation, "start_time and end_time must be HH:MM")
	}
	if sched.StartTime >= sched.EndTime {
		return clinicerr.New(clinicerr.Validation, "start_time must be before end_time")
	}
	return nil
}

func requireSelfOrAdmin(actor auth.Actor, doctorID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsDoctor() && actor.ID == doctorID {
		return nil
	}
	return clinicerr.New(clinicerr.Forbidden, "only the doctor or an admin may manage this schedule")
}

// Create opens a doctor's day. At most one schedule per (doctor, date).
func (s *Service) Create(ctx context.Context, sched *Schedule, actor auth.Actor) error {
	if err := s.validate(sched); err != nil {
		return err
	}
	if err := requireSelfOrAdmin(actor, sched.DoctorID); err != nil {
		return err
	}

	sched.Date = clock.Midnight(sched.Date)
	if _, err := s.schedules.GetByDoctorDate(ctx, sched.DoctorID, sched.Date); err == nil {
		return clinicerr.New(clinicerr.Conflict, "a schedule already exists for this doctor and date")
	} else if !db.IsNoRows(err) {
		return err
	}

	sched.ID = uuid.New()
	if err := s.schedules.Create(ctx, sched); err != nil {
		if db.IsUniqueViolation(err) {
			return clinicerr.New(clinicerr.Conflict, "a schedule already exists for this doctor and date")
		}
		return err
	}
	return nil
}

// Update edits a schedule. It is refused while any queue entry for the
// (doctor, date) has progressed past waiting. When the date changes, all
// waiting queue entries follow the schedule to the new date in the same
// transaction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in *Schedule, actor auth.Actor) (*Schedule, error) {
	var updated *Schedule
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		sched, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if err := requireSelfOrAdmin(actor, sched.DoctorID); err != nil {
			return err
		}

		nonWaiting, err := s.queues.CountNonWaiting(ctx, sched.DoctorID, sched.Date)
		if err != nil {
			return err
		}
		if nonWaiting > 0 {
			return clinicerr.New(clinicerr.Conflict, "schedule is locked: visits are already in progress for this date")
		}

		oldDate := sched.Date
		sched.Date = clock.Midnight(in.Date)
		sched.StartTime = in.StartTime
		sched.EndTime = in.EndTime
		sched.Available = in.Available
		sched.Notes = in.Notes
		if err := s.validate(sched); err != nil {
			return err
		}

		if !sched.Date.Equal(oldDate) {
			if _, err := s.schedules.GetByDoctorDate(ctx, sched.DoctorID, sched.Date); err == nil {
				return clinicerr.New(clinicerr.Conflict, "a schedule already exists for this doctor and date")
			} else if !db.IsNoRows(err) {
				return err
			}
		}

		if err := s.schedules.Update(ctx, sched); err != nil {
			if db.IsUniqueViolation(err) {
				return clinicerr.New(clinicerr.Conflict, "a schedule already exists for this doctor and date")
			}
			return err
		}
		if !sched.Date.Equal(oldDate) {
			if _, err := s.queues.MoveWaiting(ctx, sched.DoctorID, oldDate, sched.Date); err != nil {
				return err
			}
		}
		updated = sched
		return nil
	})
	return updated, err
}

// ToggleAvailability flips the availability flag. Turning a day off is
// refused while any queue entry exists for it, whatever its status.
func (s *Service) ToggleAvailability(ctx context.Context, id uuid.UUID, available bool, actor auth.Actor) (*Schedule, error) {
	var updated *Schedule
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		sched, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if err := requireSelfOrAdmin(actor, sched.DoctorID); err != nil {
			return err
		}

		if !available {
			count, err := s.queues.CountByDoctorDate(ctx, sched.DoctorID, sched.Date)
			if err != nil {
				return err
			}
			if count > 0 {
				return clinicerr.New(clinicerr.Conflict, "schedule is locked: queue entries exist for this date")
			}
		}

		sched.Available = available
		if err := s.schedules.Update(ctx, sched); err != nil {
			return err
		}
		updated = sched
		return nil
	})
	return updated, err
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "schedule not found")
		}
		return nil, err
	}
	return sched, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.get(ctx, id)
}

// AvailableOn reports whether the doctor accepts visits on date. Queue
// admission consults this exactly once, at admission time.
func (s *Service) AvailableOn(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	sched, err := s.schedules.GetByDoctorDate(ctx, doctorID, clock.Midnight(date))
	if err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return sched.Available, nil
}

func (s *Service) ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.ListByDate(ctx, clock.Midnight(date), limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.ListByDoctor(ctx, doctorID, clock.Midnight(from), limit, offset)
}
