package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
)

type Service struct {
	patients Repository
	seq      sequence.Generator
	clk      clock.Clock
	tx       db.TxRunner
}

func NewService(patients Repository, seq sequence.Generator, clk clock.Clock, tx db.TxRunner) *Service {
	return &Service{patients: patients, seq: seq, clk: clk, tx: tx}
}

// Register creates a patient and assigns their MR number. The number is
// generated and the row inserted in one transaction so an aborted insert
// rolls the counter back with it.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return clinicerr.New(clinicerr.Validation, "name is required")
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		key := sequence.MRKey(s.clk.Now())
		seq, err := s.seq.Next(ctx, key)
		if err != nil {
			return err
		}
		p.ID = uuid.New()
		p.MRNumber = sequence.Format(key, seq)
		p.Status = StatusActive
		return s.patients.Create(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return clinicerr.New(clinicerr.Validation, "name is required")
	}
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	p.MRNumber = existing.MRNumber
	return s.patients.Update(ctx, p)
}

// Delete tombstones a patient. Their queue history, records and invoices
// remain intact.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.patients.MarkDeleted(ctx, id)
}

func (s *Service) List(ctx context.Context, nameFilter string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, nameFilter, limit, offset)
}
