package medrecord

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
	repo      Repository
	visits    VisitSource
	vitals    VitalSource
	clk       clock.Clock
	tx        db.TxRunner
	lockAfter time.Duration
}

func NewService(repo Repository, visits VisitSource, vitals VitalSource,
	clk clock.Clock, tx db.TxRunner, lockAfter time.Duration) *Service {
	return &Service{repo: repo, visits: visits, vitals: vitals, clk: clk, tx: tx, lockAfter: lockAfter}
}

// RecordParams carries a create or update request for the SOAP note.
type RecordParams struct {
	QueueID    uuid.UUID
	Subjective *string
	Objective  *string
	Assessment *string
	Plan       *string
	Diagnoses  []DiagnosisInput
}

func buildDiagnoses(recordID uuid.UUID, inputs []DiagnosisInput) []*Diagnosis {
	items := make([]*Diagnosis, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, &Diagnosis{
			ID:          uuid.New(),
			RecordID:    recordID,
			Code:        in.Code,
			Description: in.Description,
			IsPrimary:   in.IsPrimary,
		})
	}
	return items
}

// Create writes the visit's record. The patient comes from the queue entry
// and the vitals taken during the visit are attached if they exist at this
// point.
func (s *Service) Create(ctx context.Context, p RecordParams, actor auth.Actor) (*MedicalRecord, error) {
	if p.QueueID == uuid.Nil {
		return nil, clinicerr.New(clinicerr.Validation, "queue_id is required")
	}
	if err := ValidateDiagnoses(p.Diagnoses); err != nil {
		return nil, err
	}

	var rec *MedicalRecord
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		visit, err := s.visits.GetByID(ctx, p.QueueID)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "queue entry not found")
			}
			return err
		}
		if !actor.IsAdmin() && !(actor.IsDoctor() && actor.ID == visit.DoctorID) {
			return clinicerr.New(clinicerr.Forbidden, "only the assigned doctor or an admin may write this record")
		}

		if _, err := s.repo.GetByQueueID(ctx, p.QueueID); err == nil {
			return clinicerr.New(clinicerr.Conflict, "record already exists for this visit")
		} else if !db.IsNoRows(err) {
			return err
		}

		var vitalID *uuid.UUID
		if v, err := s.vitals.GetByQueueID(ctx, p.QueueID); err == nil {
			vitalID = &v.ID
		} else if !db.IsNoRows(err) {
			return err
		}

		rec = &MedicalRecord{
			ID:          uuid.New(),
			QueueID:     p.QueueID,
			PatientID:   visit.PatientID,
			DoctorID:    visit.DoctorID,
			VitalSignID: vitalID,
			Subjective:  p.Subjective,
			Objective:   p.Objective,
			Assessment:  p.Assessment,
			Plan:        p.Plan,
		}
		diagnoses := buildDiagnoses(rec.ID, p.Diagnoses)
		if err := s.repo.Create(ctx, rec, diagnoses); err != nil {
			if db.IsUniqueViolation(err) {
				return clinicerr.New(clinicerr.Conflict, "record already exists for this visit")
			}
			return err
		}
		rec.Diagnoses = diagnoses
		return nil
	})
	return rec, err
}

// Update rewrites the note and its diagnoses. A locked record rejects every
// edit; use an addendum instead.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p RecordParams, actor auth.Actor) (*MedicalRecord, error) {
	if err := ValidateDiagnoses(p.Diagnoses); err != nil {
		return nil, err
	}

	var out *MedicalRecord
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "record not found")
			}
			return err
		}
		if !actor.IsAdmin() && !(actor.IsDoctor() && actor.ID == rec.DoctorID) {
			return clinicerr.New(clinicerr.Forbidden, "only the authoring doctor or an admin may edit this record")
		}
		if rec.IsLocked {
			return clinicerr.New(clinicerr.InvalidTransition, "record is locked")
		}

		rec.Subjective = p.Subjective
		rec.Objective = p.Objective
		rec.Assessment = p.Assessment
		rec.Plan = p.Plan

		diagnoses := buildDiagnoses(rec.ID, p.Diagnoses)
		if err := s.repo.ReplaceDiagnoses(ctx, rec.ID, diagnoses); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
		rec.Diagnoses = diagnoses
		out = rec
		return nil
	})
	return out, err
}

// Lock closes the record early, before the sweep would.
func (s *Service) Lock(ctx context.Context, id uuid.UUID, actor auth.Actor) (*MedicalRecord, error) {
	var out *MedicalRecord
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "record not found")
			}
			return err
		}
		if !actor.IsAdmin() && !(actor.IsDoctor() && actor.ID == rec.DoctorID) {
			return clinicerr.New(clinicerr.Forbidden, "only the authoring doctor or an admin may lock this record")
		}
		if rec.IsLocked {
			return clinicerr.New(clinicerr.InvalidTransition, "record is already locked")
		}
		now := s.clk.Now()
		rec.IsLocked = true
		rec.LockedAt = &now
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

// LockStale locks every record older than the configured editing window.
// Run from the background sweep; repeat runs are no-ops for already locked
// rows.
func (s *Service) LockStale(ctx context.Context) (int, error) {
	now := s.clk.Now()
	return s.repo.LockStale(ctx, now.Add(-s.lockAfter), now)
}

// Get returns the record with diagnoses and addenda.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "record not found")
		}
		return nil, err
	}
	return s.hydrate(ctx, rec)
}

// GetByQueue returns the visit's record, if written.
func (s *Service) GetByQueue(ctx context.Context, queueID uuid.UUID) (*MedicalRecord, error) {
	rec, err := s.repo.GetByQueueID(ctx, queueID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "no record for this visit")
		}
		return nil, err
	}
	return s.hydrate(ctx, rec)
}

func (s *Service) hydrate(ctx context.Context, rec *MedicalRecord) (*MedicalRecord, error) {
	var err error
	if rec.Diagnoses, err = s.repo.GetDiagnoses(ctx, rec.ID); err != nil {
		return nil, err
	}
	if rec.Addenda, err = s.repo.GetAddenda(ctx, rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByPatient returns the patient's records, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// AddAddendum appends a correction to a record. Works on locked records,
// which is the point of addenda.
func (s *Service) AddAddendum(ctx context.Context, recordID uuid.UUID, content string, actor auth.Actor) (*Addendum, error) {
	if content == "" {
		return nil, clinicerr.New(clinicerr.Validation, "addendum content is required")
	}
	if !actor.IsAdmin() && !actor.IsDoctor() {
		return nil, clinicerr.New(clinicerr.Forbidden, "only a doctor or an admin may add an addendum")
	}
	if _, err := s.repo.GetByID(ctx, recordID); err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "record not found")
		}
		return nil, err
	}
	a := &Addendum{
		ID:       uuid.New(),
		RecordID: recordID,
		AuthorID: actor.ID,
		Content:  content,
	}
	if err := s.repo.CreateAddendum(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) addendumForWrite(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Addendum, error) {
	a, err := s.repo.GetAddendum(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "addendum not found")
		}
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != a.AuthorID {
		return nil, clinicerr.New(clinicerr.Forbidden, "only the author or an admin may change this addendum")
	}
	return a, nil
}

// UpdateAddendum edits an addendum's content.
func (s *Service) UpdateAddendum(ctx context.Context, id uuid.UUID, content string, actor auth.Actor) (*Addendum, error) {
	if content == "" {
		return nil, clinicerr.New(clinicerr.Validation, "addendum content is required")
	}
	a, err := s.addendumForWrite(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	a.Content = content
	if err := s.repo.UpdateAddendum(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAddendum removes an addendum.
func (s *Service) DeleteAddendum(ctx context.Context, id uuid.UUID, actor auth.Actor) error {
	a, err := s.addendumForWrite(ctx, id, actor)
	if err != nil {
		return err
	}
	return s.repo.DeleteAddendum(ctx, a.ID)
}
