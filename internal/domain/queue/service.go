package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
)

type Service struct {
	queues    Repository
	vitals    VitalSignRepository
	schedules ScheduleSource
	seq       sequence.Generator
	clk       clock.Clock
	tx        db.TxRunner
}

func NewService(queues Repository, vitals VitalSignRepository, schedules ScheduleSource,
	seq sequence.Generator, clk clock.Clock, tx db.TxRunner) *Service {
	return &Service{queues: queues, vitals: vitals, schedules: schedules, seq: seq, clk: clk, tx: tx}
}

// AdmitParams is the front desk's admission request.
type AdmitParams struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      *time.Time // defaults to today
	Priority  string     // defaults to normal
}

// Admit places a patient in a doctor's queue for a date. The schedule check,
// number assignment and duplicate check run in one transaction; the counter
// row lock taken by the sequence generator serialises concurrent admissions
// for the same doctor and day.
func (s *Service) Admit(ctx context.Context, p AdmitParams) (*Queue, error) {
	if p.DoctorID == uuid.Nil {
		return nil, clinicerr.New(clinicerr.Validation, "doctor_id is required")
	}
	if p.PatientID == uuid.Nil {
		return nil, clinicerr.New(clinicerr.Validation, "patient_id is required")
	}

	date := s.clk.Today()
	if p.Date != nil {
		date = s.clinicDate(*p.Date)
	}
	if date.Before(s.clk.Today().AddDate(0, 0, -1)) {
		return nil, clinicerr.New(clinicerr.Validation, "date must not be more than one day in the past")
	}

	priority := p.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if priority != PriorityNormal && priority != PriorityUrgent {
		return nil, clinicerr.Newf(clinicerr.Validation, "invalid priority: %s", priority)
	}

	var entry *Queue
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		available, err := s.schedules.AvailableOn(ctx, p.DoctorID, date)
		if err != nil {
			return err
		}
		if !available {
			return clinicerr.New(clinicerr.NotFound, "no available schedule for this doctor and date")
		}

		number, err := s.seq.Next(ctx, sequence.QueueKey(p.DoctorID, date))
		if err != nil {
			return err
		}

		active, err := s.queues.HasActiveVisit(ctx, p.DoctorID, p.PatientID, date)
		if err != nil {
			return err
		}
		if active {
			return clinicerr.New(clinicerr.Conflict, "patient already has an active visit for this doctor and date")
		}

		entry = &Queue{
			ID:        uuid.New(),
			DoctorID:  p.DoctorID,
			PatientID: p.PatientID,
			Date:      date,
			Number:    number,
			Status:    StatusWaiting,
			Priority:  priority,
		}
		if err := s.queues.Create(ctx, entry); err != nil {
			if db.IsUniqueViolation(err) {
				return clinicerr.New(clinicerr.Conflict, "patient already has an active visit for this doctor and date")
			}
			return err
		}
		return nil
	})
	return entry, err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Queue, error) {
	q, err := s.queues.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "queue entry not found")
		}
		return nil, err
	}
	return q, nil
}

// clinicDate reinterprets t's calendar day as clinic-zone midnight. Dates on
// the wire carry no offset and arrive parsed as UTC; comparing those instants
// against clinic-zone boundaries would shift the day in zones west of UTC.
func (s *Service) clinicDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.clk.Today().Location())
}

// ListByDoctorDate returns the day's queue, urgent first, then by number.
func (s *Service) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Queue, error) {
	return s.queues.ListByDoctorDate(ctx, doctorID, s.clinicDate(date))
}

// transition loads the entry under a row lock, applies mutate, and saves.
func (s *Service) transition(ctx context.Context, id uuid.UUID, mutate func(q *Queue) error) (*Queue, error) {
	var out *Queue
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.queues.GetForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "queue entry not found")
			}
			return err
		}
		if err := mutate(q); err != nil {
			return err
		}
		if err := s.queues.Update(ctx, q); err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, err
}

func requireAssignedDoctorOrAdmin(actor auth.Actor, q *Queue) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsDoctor() && actor.ID == q.DoctorID {
		return nil
	}
	return clinicerr.New(clinicerr.Forbidden, "only the assigned doctor or an admin may do this")
}

// Call moves a waiting or vitals-done patient into consultation.
func (s *Service) Call(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Queue, error) {
	return s.transition(ctx, id, func(q *Queue) error {
		if err := requireAssignedDoctorOrAdmin(actor, q); err != nil {
			return err
		}
		if q.Status != StatusWaiting && q.Status != StatusVitals {
			return clinicerr.Newf(clinicerr.InvalidTransition, "cannot call a %s entry", q.Status)
		}
		now := s.clk.Now()
		q.Status = StatusInConsultation
		q.CalledAt = &now
		q.StartedAt = &now
		return nil
	})
}

// Complete finishes a consultation.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Queue, error) {
	return s.transition(ctx, id, func(q *Queue) error {
		if err := requireAssignedDoctorOrAdmin(actor, q); err != nil {
			return err
		}
		if q.Status != StatusInConsultation {
			return clinicerr.Newf(clinicerr.InvalidTransition, "cannot complete a %s entry", q.Status)
		}
		now := s.clk.Now()
		q.Status = StatusCompleted
		q.CompletedAt = &now
		return nil
	})
}

// Cancel voids a visit from any non-terminal state. Front desk and admin
// only; the doctor never cancels their own queue.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Queue, error) {
	return s.transition(ctx, id, func(q *Queue) error {
		if !actor.IsAdmin() && !actor.IsReceptionist() {
			return clinicerr.New(clinicerr.Forbidden, "only front desk or an admin may cancel a visit")
		}
		if IsTerminal(q.Status) {
			return clinicerr.Newf(clinicerr.InvalidTransition, "cannot cancel a %s entry", q.Status)
		}
		q.Status = StatusCancelled
		return nil
	})
}

// SetStatus is the front-desk escape hatch for manual corrections: a direct
// status assignment without the usual side-effect timestamps.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string, actor auth.Actor) (*Queue, error) {
	if !ValidStatus(status) {
		return nil, clinicerr.Newf(clinicerr.Validation, "invalid status: %s", status)
	}
	return s.transition(ctx, id, func(q *Queue) error {
		if !actor.IsAdmin() && !actor.IsReceptionist() {
			return clinicerr.New(clinicerr.Forbidden, "only front desk or an admin may set status directly")
		}
		q.Status = status
		return nil
	})
}

// RecordVitals stores the visit's measurements and moves the entry from
// waiting to vitals.
func (s *Service) RecordVitals(ctx context.Context, queueID uuid.UUID, v *VitalSign, actor auth.Actor) (*VitalSign, error) {
	var out *VitalSign
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.queues.GetForUpdate(ctx, queueID)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "queue entry not found")
			}
			return err
		}
		if q.Status != StatusWaiting {
			return clinicerr.Newf(clinicerr.InvalidTransition, "cannot record vitals for a %s entry", q.Status)
		}
		if _, err := s.vitals.GetByQueueID(ctx, queueID); err == nil {
			return clinicerr.New(clinicerr.Conflict, "vitals already recorded for this visit")
		} else if !db.IsNoRows(err) {
			return err
		}

		v.ID = uuid.New()
		v.QueueID = queueID
		v.RecordedBy = actor.ID
		v.RefreshBMI()
		if err := s.vitals.Create(ctx, v); err != nil {
			return err
		}

		q.Status = StatusVitals
		if err := s.queues.Update(ctx, q); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// UpdateVitals edits measurements and recomputes the BMI.
func (s *Service) UpdateVitals(ctx context.Context, id uuid.UUID, in *VitalSign) (*VitalSign, error) {
	var out *VitalSign
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		v, err := s.vitals.GetByID(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "vital sign not found")
			}
			return err
		}
		v.HeightCM = in.HeightCM
		v.WeightKG = in.WeightKG
		v.Systolic = in.Systolic
		v.Diastolic = in.Diastolic
		v.PulseRate = in.PulseRate
		v.TemperatureC = in.TemperatureC
		v.Notes = in.Notes
		v.RefreshBMI()
		if err := s.vitals.Update(ctx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// DeleteVitals removes the measurements. The queue entry reverts to waiting
// only when it is still sitting in vitals.
func (s *Service) DeleteVitals(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		v, err := s.vitals.GetByID(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "vital sign not found")
			}
			return err
		}

		q, err := s.queues.GetForUpdate(ctx, v.QueueID)
		if err != nil {
			return err
		}
		if err := s.vitals.Delete(ctx, v.ID); err != nil {
			return err
		}
		if q.Status == StatusVitals {
			q.Status = StatusWaiting
			return s.queues.Update(ctx, q)
		}
		return nil
	})
}

// GetVitalsByQueue returns the visit's measurements, if recorded.
func (s *Service) GetVitalsByQueue(ctx context.Context, queueID uuid.UUID) (*VitalSign, error) {
	v, err := s.vitals.GetByQueueID(ctx, queueID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "vitals not recorded for this visit")
		}
		return nil, err
	}
	return v, nil
}
