package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
	"github.com/cuinc99/docdoc/internal/platform/settings"
)

type Service struct {
	repo     Repository
	seq      sequence.Generator
	settings settings.Store
	clk      clock.Clock
	tx       db.TxRunner
}

func NewService(repo Repository, seq sequence.Generator, store settings.Store,
	clk clock.Clock, tx db.TxRunner) *Service {
	return &Service{repo: repo, seq: seq, settings: store, clk: clk, tx: tx}
}

// InvoiceParams carries a create or update request. A nil TaxPercent falls
// back to the clinic's configured default.
type InvoiceParams struct {
	PatientID     uuid.UUID
	Items         []LineInput
	DiscountCents int64
	TaxPercent    *float64
	Notes         *string
}

func validateLines(items []LineInput) error {
	if len(items) == 0 {
		return clinicerr.New(clinicerr.Validation, "invoice needs at least one item")
	}
	for _, it := range items {
		if it.Description == "" {
			return clinicerr.New(clinicerr.Validation, "item description is required")
		}
		if it.Quantity <= 0 {
			return clinicerr.Newf(clinicerr.Validation, "item %q quantity must be positive", it.Description)
		}
		if it.UnitPriceCents < 0 {
			return clinicerr.Newf(clinicerr.Validation, "item %q unit price must not be negative", it.Description)
		}
	}
	return nil
}

func buildItems(invoiceID uuid.UUID, lines []LineInput) []*InvoiceItem {
	items := make([]*InvoiceItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, &InvoiceItem{
			ID:             uuid.New(),
			InvoiceID:      invoiceID,
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			LineTotalCents: int64(l.Quantity) * l.UnitPriceCents,
		})
	}
	return items
}

func (s *Service) resolveTaxPercent(ctx context.Context, override *float64) (float64, error) {
	if override != nil {
		if *override < 0 || *override > 100 {
			return 0, clinicerr.New(clinicerr.Validation, "tax_percent must be between 0 and 100")
		}
		return *override, nil
	}
	return settings.TaxPercent(ctx, s.settings)
}

// Create issues a new invoice with a monthly running number.
func (s *Service) Create(ctx context.Context, p InvoiceParams) (*Invoice, error) {
	if p.PatientID == uuid.Nil {
		return nil, clinicerr.New(clinicerr.Validation, "patient_id is required")
	}
	if err := validateLines(p.Items); err != nil {
		return nil, err
	}
	if p.DiscountCents < 0 {
		return nil, clinicerr.New(clinicerr.Validation, "discount must not be negative")
	}
	taxPct, err := s.resolveTaxPercent(ctx, p.TaxPercent)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(p.Items, p.DiscountCents, taxPct)

	var inv *Invoice
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		key := sequence.InvoiceKey(s.clk.Now())
		seq, err := s.seq.Next(ctx, key)
		if err != nil {
			return err
		}

		inv = &Invoice{
			ID:            uuid.New(),
			Number:        sequence.Format(key, seq),
			PatientID:     p.PatientID,
			SubtotalCents: totals.SubtotalCents,
			DiscountCents: p.DiscountCents,
			TaxPercent:    taxPct,
			TaxCents:      totals.TaxCents,
			TotalCents:    totals.TotalCents,
			PaidCents:     0,
			Status:        StatusPending,
			Notes:         p.Notes,
		}
		items := buildItems(inv.ID, p.Items)
		if err := s.repo.CreateInvoice(ctx, inv, items); err != nil {
			return err
		}
		inv.Items = items
		return nil
	})
	return inv, err
}

// Update rewrites the billable lines of a pending invoice and recomputes its
// totals. The paid amount is untouched; once money has arrived the invoice is
// partial and no longer editable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p InvoiceParams) (*Invoice, error) {
	if err := validateLines(p.Items); err != nil {
		return nil, err
	}
	if p.DiscountCents < 0 {
		return nil, clinicerr.New(clinicerr.Validation, "discount must not be negative")
	}
	taxPct, err := s.resolveTaxPercent(ctx, p.TaxPercent)
	if err != nil {
		return nil, err
	}

	var out *Invoice
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "invoice not found")
			}
			return err
		}
		if inv.Status != StatusPending {
			return clinicerr.Newf(clinicerr.InvalidTransition, "cannot edit a %s invoice", inv.Status)
		}

		totals := ComputeTotals(p.Items, p.DiscountCents, taxPct)
		inv.SubtotalCents = totals.SubtotalCents
		inv.DiscountCents = p.DiscountCents
		inv.TaxPercent = taxPct
		inv.TaxCents = totals.TaxCents
		inv.TotalCents = totals.TotalCents
		if p.Notes != nil {
			inv.Notes = p.Notes
		}

		items := buildItems(inv.ID, p.Items)
		if err := s.repo.ReplaceItems(ctx, inv.ID, items); err != nil {
			return err
		}
		if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		inv.Items = items
		out = inv
		return nil
	})
	return out, err
}

// Cancel voids an invoice. Only a pending invoice can be cancelled; once a
// payment has been taken the ledger must keep balancing.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	var out *Invoice
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "invoice not found")
			}
			return err
		}
		if inv.Status != StatusPending {
			return clinicerr.Newf(clinicerr.InvalidTransition, "cannot cancel a %s invoice", inv.Status)
		}
		inv.Status = StatusCancelled
		if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	return out, err
}

// AddPayment applies a payment against the invoice under a row lock. The
// amount may never exceed the outstanding balance; an overpayment attempt
// leaves the invoice untouched.
func (s *Service) AddPayment(ctx context.Context, invoiceID uuid.UUID, amountCents int64,
	method string, reference *string, actor auth.Actor) (*Invoice, error) {
	if amountCents <= 0 {
		return nil, clinicerr.New(clinicerr.Validation, "payment amount must be positive")
	}
	if !ValidMethod(method) {
		return nil, clinicerr.Newf(clinicerr.Validation, "invalid payment method: %s", method)
	}

	var out *Invoice
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			if db.IsNoRows(err) {
				return clinicerr.New(clinicerr.NotFound, "invoice not found")
			}
			return err
		}
		if inv.Status == StatusCancelled {
			return clinicerr.New(clinicerr.InvalidTransition, "cannot pay a cancelled invoice")
		}
		if amountCents > inv.RemainingCents() {
			return clinicerr.Newf(clinicerr.Overpayment,
				"payment of %d exceeds outstanding balance of %d", amountCents, inv.RemainingCents())
		}

		payment := &Payment{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			AmountCents: amountCents,
			Method:      method,
			Reference:   reference,
			ReceivedBy:  actor.ID,
		}
		if err := s.repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		inv.PaidCents += amountCents
		inv.Status = DeriveStatus(inv.PaidCents, inv.TotalCents)
		if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	return out, err
}

// Get returns the invoice with its items and payment history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, clinicerr.New(clinicerr.NotFound, "invoice not found")
		}
		return nil, err
	}
	if inv.Items, err = s.repo.GetItems(ctx, id); err != nil {
		return nil, err
	}
	if inv.Payments, err = s.repo.GetPayments(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListByPatient returns the patient's invoices, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
