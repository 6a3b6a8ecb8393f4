package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
	"github.com/cuinc99/docdoc/internal/platform/settings"
)

// -- Mock repository --

type mockBillingRepo struct {
	invoices map[uuid.UUID]*Invoice
	items    map[uuid.UUID][]*InvoiceItem
	payments map[uuid.UUID][]*Payment
}

func newMockBillingRepo() *mockBillingRepo {
	return &mockBillingRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		items:    make(map[uuid.UUID][]*InvoiceItem),
		payments: make(map[uuid.UUID][]*Payment),
	}
}

func (m *mockBillingRepo) CreateInvoice(_ context.Context, inv *Invoice, items []*InvoiceItem) error {
	inv.CreatedAt = time.Now()
	m.invoices[inv.ID] = inv
	m.items[inv.ID] = items
	return nil
}

func (m *mockBillingRepo) GetInvoice(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *inv
	return &cp, nil
}

func (m *mockBillingRepo) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return m.GetInvoice(ctx, id)
}

func (m *mockBillingRepo) UpdateInvoice(_ context.Context, inv *Invoice) error {
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockBillingRepo) ReplaceItems(_ context.Context, invoiceID uuid.UUID, items []*InvoiceItem) error {
	m.items[invoiceID] = items
	return nil
}

func (m *mockBillingRepo) GetItems(_ context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	return m.items[invoiceID], nil
}

func (m *mockBillingRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if inv.PatientID == patientID {
			out = append(out, inv)
		}
	}
	return out, len(out), nil
}

func (m *mockBillingRepo) CreatePayment(_ context.Context, p *Payment) error {
	p.CreatedAt = time.Now()
	m.payments[p.InvoiceID] = append(m.payments[p.InvoiceID], p)
	return nil
}

func (m *mockBillingRepo) GetPayments(_ context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	return m.payments[invoiceID], nil
}

// -- Helpers --

var cashier = auth.Actor{ID: uuid.New(), Role: auth.RoleReceptionist}

func newTestService() (*Service, *mockBillingRepo) {
	repo := newMockBillingRepo()
	clk := &clock.Fixed{T: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)}
	svc := NewService(repo, sequence.NewMemory(), settings.NewMemory(), clk, db.NopRunner{})
	return svc, repo
}

func taxPct(pct float64) *float64 { return &pct }

func createInvoice(t *testing.T, svc *Service) *Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), InvoiceParams{
		PatientID: uuid.New(),
		Items: []LineInput{
			{Description: "Consultation", Quantity: 1, UnitPriceCents: 100000},
			{Description: "Paracetamol", Quantity: 2, UnitPriceCents: 50000},
		},
		DiscountCents: 10000,
		TaxPercent:    taxPct(10),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inv
}

// -- Tests --

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals([]LineInput{
		{Description: "Consultation", Quantity: 1, UnitPriceCents: 100000},
		{Description: "Paracetamol", Quantity: 2, UnitPriceCents: 50000},
	}, 10000, 10)

	if totals.SubtotalCents != 200000 {
		t.Errorf("subtotal = %d, want 200000", totals.SubtotalCents)
	}
	if totals.TaxCents != 19000 {
		t.Errorf("tax = %d, want 19000", totals.TaxCents)
	}
	if totals.TotalCents != 209000 {
		t.Errorf("total = %d, want 209000", totals.TotalCents)
	}
}

func TestComputeTotalsDiscountExceedsSubtotal(t *testing.T) {
	totals := ComputeTotals([]LineInput{
		{Description: "Consultation", Quantity: 1, UnitPriceCents: 5000},
	}, 10000, 10)

	if totals.TaxCents != 0 {
		t.Errorf("tax on negative balance = %d, want 0", totals.TaxCents)
	}
	if totals.TotalCents != 0 {
		t.Errorf("total = %d, want 0", totals.TotalCents)
	}
}

func TestCreateAssignsMonthlyNumber(t *testing.T) {
	svc, _ := newTestService()
	first := createInvoice(t, svc)
	second := createInvoice(t, svc)

	if first.Number != "INV26080001" {
		t.Errorf("first number = %q, want INV26080001", first.Number)
	}
	if second.Number != "INV26080002" {
		t.Errorf("second number = %q, want INV26080002", second.Number)
	}
	if first.Status != StatusPending {
		t.Errorf("status = %q, want pending", first.Status)
	}
}

func TestCreateUsesDefaultTaxFromSettings(t *testing.T) {
	repo := newMockBillingRepo()
	store := settings.NewMemory()
	store.Set(context.Background(), settings.KeyDefaultTaxPct, "11")
	clk := &clock.Fixed{T: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)}
	svc := NewService(repo, sequence.NewMemory(), store, clk, db.NopRunner{})

	inv, err := svc.Create(context.Background(), InvoiceParams{
		PatientID: uuid.New(),
		Items:     []LineInput{{Description: "Consultation", Quantity: 1, UnitPriceCents: 100000}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.TaxPercent != 11 {
		t.Errorf("tax percent = %v, want 11", inv.TaxPercent)
	}
	if inv.TaxCents != 11000 {
		t.Errorf("tax = %d, want 11000", inv.TaxCents)
	}
}

func TestCreateRejectsBadLines(t *testing.T) {
	svc, _ := newTestService()
	cases := []InvoiceParams{
		{PatientID: uuid.New()},
		{PatientID: uuid.New(), Items: []LineInput{{Description: "", Quantity: 1, UnitPriceCents: 100}}},
		{PatientID: uuid.New(), Items: []LineInput{{Description: "X", Quantity: 0, UnitPriceCents: 100}}},
		{PatientID: uuid.New(), Items: []LineInput{{Description: "X", Quantity: 1, UnitPriceCents: -1}}},
	}
	for i, p := range cases {
		if _, err := svc.Create(context.Background(), p); !clinicerr.IsKind(err, clinicerr.Validation) {
			t.Errorf("case %d: err = %v, want Validation", i, err)
		}
	}
}

func TestPaymentProgression(t *testing.T) {
	svc, _ := newTestService()
	inv := createInvoice(t, svc) // total 209000

	got, err := svc.AddPayment(context.Background(), inv.ID, 100000, MethodCash, nil, cashier)
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if got.Status != StatusPartial || got.PaidCents != 100000 {
		t.Errorf("after first payment: status=%q paid=%d", got.Status, got.PaidCents)
	}

	got, err = svc.AddPayment(context.Background(), inv.ID, 109000, MethodTransfer, nil, cashier)
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if got.Status != StatusPaid || got.PaidCents != 209000 {
		t.Errorf("after final payment: status=%q paid=%d", got.Status, got.PaidCents)
	}
}

func TestOverpaymentLeavesInvoiceUntouched(t *testing.T) {
	svc, repo := newTestService()
	inv := createInvoice(t, svc) // total 209000

	_, err := svc.AddPayment(context.Background(), inv.ID, 209001, MethodCash, nil, cashier)
	if !clinicerr.IsKind(err, clinicerr.Overpayment) {
		t.Fatalf("err = %v, want Overpayment", err)
	}
	if repo.invoices[inv.ID].PaidCents != 0 {
		t.Errorf("paid = %d after rejected payment, want 0", repo.invoices[inv.ID].PaidCents)
	}
	if len(repo.payments[inv.ID]) != 0 {
		t.Errorf("payments recorded = %d, want 0", len(repo.payments[inv.ID]))
	}
}

func TestPaymentOnCancelledInvoiceFails(t *testing.T) {
	svc, _ := newTestService()
	inv := createInvoice(t, svc)

	if _, err := svc.Cancel(context.Background(), inv.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	_, err := svc.AddPayment(context.Background(), inv.ID, 1000, MethodCash, nil, cashier)
	if !clinicerr.IsKind(err, clinicerr.InvalidTransition) {
		t.Fatalf("err = %v, want InvalidTransition", err)
	}
}

func TestPaymentValidation(t *testing.T) {
	svc, _ := newTestService()
	inv := createInvoice(t, svc)

	if _, err := svc.AddPayment(context.Background(), inv.ID, 0, MethodCash, nil, cashier); !clinicerr.IsKind(err, clinicerr.Validation) {
		t.Errorf("zero amount err = %v, want Validation", err)
	}
	if _, err := svc.AddPayment(context.Background(), inv.ID, 1000, "crypto", nil, cashier); !clinicerr.IsKind(err, clinicerr.Validation) {
		t.Errorf("bad method err = %v, want Validation", err)
	}
}

func TestCancelOnlyPending(t *testing.T) {
	svc, _ := newTestService()
	inv := createInvoice(t, svc)

	if _, err := svc.AddPayment(context.Background(), inv.ID, 1000, MethodCash, nil, cashier); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), inv.ID); !clinicerr.IsKind(err, clinicerr.InvalidTransition) {
		t.Fatalf("cancel partial err = %v, want InvalidTransition", err)
	}
}

func TestUpdateOnlyPendingAndKeepsPaid(t *testing.T) {
	svc, _ := newTestService()
	inv := createInvoice(t, svc)

	updated, err := svc.Update(context.Background(), inv.ID, InvoiceParams{
		Items:      []LineInput{{Description: "Consultation", Quantity: 1, UnitPriceCents: 150000}},
		TaxPercent: taxPct(0),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TotalCents != 150000 {
		t.Errorf("total = %d, want 150000", updated.TotalCents)
	}
	if updated.PaidCents != 0 {
		t.Errorf("paid = %d, want 0", updated.PaidCents)
	}

	if _, err := svc.AddPayment(context.Background(), inv.ID, 1000, MethodCash, nil, cashier); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	_, err = svc.Update(context.Background(), inv.ID, InvoiceParams{
		Items:      []LineInput{{Description: "Consultation", Quantity: 1, UnitPriceCents: 150000}},
		TaxPercent: taxPct(0),
	})
	if !clinicerr.IsKind(err, clinicerr.InvalidTransition) {
		t.Fatalf("update partial err = %v, want InvalidTransition", err)
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		paid, total int64
		want        string
	}{
		{0, 1000, StatusPending},
		{500, 1000, StatusPartial},
		{1000, 1000, StatusPaid},
	}
	for _, c := range cases {
		if got := DeriveStatus(c.paid, c.total); got != c.want {
			t.Errorf("DeriveStatus(%d, %d) = %q, want %q", c.paid, c.total, got, c.want)
		}
	}
}
