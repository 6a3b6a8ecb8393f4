package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
)

type Service struct {
	repo    Repository
	records RecordSource
	seq     sequence.Generator
	clk     clock.Clock
	tx      db.TxRunner
}

func NewService(repo Repository, records RecordSource, seq sequence.Generator,
	clk clock.Clock, tx db.TxRunner) *Service {
	return &Service{repo: repo, records: records, seq: seq, clk: clk, tx: tx}
}

// Params carries a create or update request.
type Params struct {
	RecordID uuid.UUID
	Notes    *string
	Items    []ItemInput
}

func buildItems(prescriptionID uuid.UUID, inputs []ItemInput) []*Item {
	items := make([]*Item, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, &Item{
			ID:             uuid.New(),
			PrescriptionID: prescriptionID,
			DrugName:       in.DrugName,
			Dosage:         in.Dosage,
			Frequency:      in.Frequency,
			Quantity:       in.Quantity,
			Instructions:   in.Instructions,
		})
	}
	return items
}

// Create issues a prescription against a medical record, with a daily
// running number.
func (s *Service) Create(ctx context.Context, p Params, actor auth.Actor) (*Prescription, error) {
	if p.RecordID == uuid.Nil {
		return nil, clinicerr.New(clinicerr.Validation, "record_id is required")
	}
	if err := ValidateItems(p.Items); err != nil {
		return nil, err
	}

	var rx *Prescription
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.GetByID(ctx, p.RecordID)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "record not found")
			}
			return err
		}
		if !actor.IsAdmin() && !(actor.IsDoctor() && actor.ID == rec.DoctorID) {
			return clinicerr.New(clinicerr.Forbidden, "only the treating doctor or an admin may prescribe")
		}

		if _, err := s.repo.GetByRecordID(ctx, p.RecordID); err == nil {
			return clinicerr.New(clinicerr.Conflict, "prescription already exists for this record")
		} else if !db.IsNoRows(err) {
			return err
		}

		key := sequence.PrescriptionKey(s.clk.Now())
		seq, err := s.seq.Next(ctx, key)
		if err != nil {
			return err
		}

		rx = &Prescription{
			ID:       uuid.New(),
			Number:   sequence.Format(key, seq),
			RecordID: p.RecordID,
			DoctorID: rec.DoctorID,
			Notes:    p.Notes,
		}
		items := buildItems(rx.ID, p.Items)
		if err := s.repo.Create(ctx, rx, items); err != nil {
			if db.IsUniqueViolation(err) {
				return clinicerr.New(clinicerr.Conflict, "prescription already exists for this record")
			}
			return err
		}
		rx.Items = items
		return nil
	})
	return rx, err
}

// Update rewrites the drug lines. A dispensed prescription rejects every
// edit; the drugs have left the cabinet.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Params, actor auth.Actor) (*Prescription, error) {
	if err := ValidateItems(p.Items); err != nil {
		return nil, err
	}

	var out *Prescription
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rx, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "prescription not found")
			}
			return err
		}
		if !actor.IsAdmin() && !(actor.IsDoctor() && actor.ID == rx.DoctorID) {
			return clinicerr.New(clinicerr.Forbidden, "only the prescribing doctor or an admin may edit this prescription")
		}
		if rx.IsDispensed {
			return clinicerr.New(clinicerr.InvalidTransition, "prescription is already dispensed")
		}

		rx.Notes = p.Notes
		items := buildItems(rx.ID, p.Items)
		if err := s.repo.ReplaceItems(ctx, rx.ID, items); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, rx); err != nil {
			return err
		}
		rx.Items = items
		out = rx
		return nil
	})
	return out, err
}

// Dispense hands the drugs over. Irreversible; a second call fails.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Prescription, error) {
	var out *Prescription
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		rx, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "prescription not found")
			}
			return err
		}
		if rx.IsDispensed {
			return clinicerr.New(clinicerr.InvalidTransition, "prescription is already dispensed")
		}
		now := s.clk.Now()
		actorID := actor.ID
		rx.IsDispensed = true
		rx.DispensedAt = &now
		rx.DispensedBy = &actorID
		if err := s.repo.Update(ctx, rx); err != nil {
			return err
		}
		out = rx
		return nil
	})
	return out, err
}

// Get returns the prescription with its drug lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	rx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "prescription not found")
		}
		return nil, err
	}
	if rx.Items, err = s.repo.GetItems(ctx, rx.ID); err != nil {
		return nil, err
	}
	return rx, nil
}

// GetByRecord returns the record's prescription, if written.
func (s *Service) GetByRecord(ctx context.Context, recordID uuid.UUID) (*Prescription, error) {
	rx, err := s.repo.GetByRecordID(ctx, recordID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "no prescription for this record")
		}
		return nil, err
	}
	if rx.Items, err = s.repo.GetItems(ctx, rx.ID); err != nil {
		return nil, err
	}
	return rx, nil
}
