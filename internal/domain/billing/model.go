package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Invoice statuses.
const (
	StatusPending   = "pending"
	StatusPartial   = "partial"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Payment methods.
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

// ValidMethod reports whether m is an accepted payment method.
func ValidMethod(m string) bool {
	return m == MethodCash || m == MethodTransfer
}

// Invoice maps to the invoice table. All money amounts are integer cents.
type Invoice struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Number        string    `db:"invoice_number" json:"invoice_number"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	SubtotalCents int64     `db:"subtotal_cents" json:"subtotal_cents"`
	DiscountCents int64     `db:"discount_cents" json:"discount_cents"`
	TaxPercent    float64   `db:"tax_percent" json:"tax_percent"`
	TaxCents      int64     `db:"tax_cents" json:"tax_cents"`
	TotalCents    int64     `db:"total_cents" json:"total_cents"`
	PaidCents     int64     `db:"paid_cents" json:"paid_cents"`
	Status        string    `db:"status" json:"status"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	Items    []*InvoiceItem `db:"-" json:"items,omitempty"`
	Payments []*Payment     `db:"-" json:"payments,omitempty"`
}

// RemainingCents is the unpaid balance.
func (inv *Invoice) RemainingCents() int64 {
	return inv.TotalCents - inv.PaidCents
}

// InvoiceItem maps to the invoice_item table.
type InvoiceItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	InvoiceID      uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description    string    `db:"description" json:"description"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	LineTotalCents int64     `db:"line_total_cents" json:"line_total_cents"`
}

// Payment maps to the payment table. Payments are append-only.
type Payment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Method      string    `db:"method" json:"method"`
	Reference   *string   `db:"reference" json:"reference,omitempty"`
	ReceivedBy  uuid.UUID `db:"received_by" json:"received_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// LineInput is one billable line in a create/update request.
type LineInput struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Totals is the derived arithmetic for an invoice.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
}

// ComputeTotals derives invoice totals from line items. The discount is not
// validated against the subtotal and may drive the balance negative; tax is
// only charged on a positive balance, and the final total never goes below
// zero.
func ComputeTotals(items []LineInput, discountCents int64, taxPercent float64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += int64(it.Quantity) * it.UnitPriceCents
	}

	afterDiscount := subtotal - discountCents

	var tax int64
	if afterDiscount > 0 && taxPercent > 0 {
		tax = int64(math.Round(float64(afterDiscount) * taxPercent / 100))
	}

	total := afterDiscount + tax
	if total < 0 {
		total = 0
	}

	return Totals{SubtotalCents: subtotal, TaxCents: tax, TotalCents: total}
}

// DeriveStatus maps the paid amount onto the invoice status.
func DeriveStatus(paidCents, totalCents int64) string {
	switch {
	case paidCents <= 0:
		return StatusPending
	case paidCents >= totalCents:
		return StatusPaid
	default:
		return StatusPartial
	}
}
