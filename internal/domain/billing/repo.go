package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists invoices, their line items and payments.
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice, items []*InvoiceItem) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// GetInvoiceForUpdate loads the invoice under a row lock so payment
	// application is single-writer.
	GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	// ReplaceItems swaps the invoice's line items wholesale.
	ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []*InvoiceItem) error
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)

	CreatePayment(ctx context.Context, p *Payment) error
	GetPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
}
