package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuinc99/docdoc/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const invoiceCols = `id, invoice_number, patient_id, subtotal_cents, discount_cents,
	tax_percent, tax_cents, total_cents, paid_cents, status, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.PatientID, &inv.SubtotalCents,
		&inv.DiscountCents, &inv.TaxPercent, &inv.TaxCents, &inv.TotalCents,
		&inv.PaidCents, &inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *repoPG) CreateInvoice(ctx context.Context, inv *Invoice, items []*InvoiceItem) error {
	conn := r.conn(ctx)
	_, err := conn.Exec(ctx, `
		INSERT INTO invoice (id, invoice_number, patient_id, subtotal_cents, discount_cents,
			tax_percent, tax_cents, total_cents, paid_cents, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		inv.ID, inv.Number, inv.PatientID, inv.SubtotalCents, inv.DiscountCents,
		inv.TaxPercent, inv.TaxCents, inv.TotalCents, inv.PaidCents, inv.Status, inv.Notes)
	if err != nil {
		return err
	}
	return r.insertItems(ctx, items)
}

func (r *repoPG) insertItems(ctx context.Context, items []*InvoiceItem) error {
	conn := r.conn(ctx)
	for _, it := range items {
		_, err := conn.Exec(ctx, `
			INSERT INTO invoice_item (id, invoice_id, description, quantity, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			it.ID, it.InvoiceID, it.Description, it.Quantity, it.UnitPriceCents, it.LineTotalCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *repoPG) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoice SET subtotal_cents=$2, discount_cents=$3, tax_percent=$4,
			tax_cents=$5, total_cents=$6, paid_cents=$7, status=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.SubtotalCents, inv.DiscountCents, inv.TaxPercent,
		inv.TaxCents, inv.TotalCents, inv.PaidCents, inv.Status, inv.Notes)
	return err
}

func (r *repoPG) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []*InvoiceItem) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM invoice_item WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	return r.insertItems(ctx, items)
}

func (r *repoPG) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price_cents, line_total_cents
		FROM invoice_item WHERE invoice_id = $1 ORDER BY description, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity,
			&it.UnitPriceCents, &it.LineTotalCents); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	conn := r.conn(ctx)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoice WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `
		SELECT `+invoiceCols+` FROM invoice
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CreatePayment(ctx context.Context, p *Payment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, invoice_id, amount_cents, method, reference, received_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.InvoiceID, p.AmountCents, p.Method, p.Reference, p.ReceivedBy)
	return err
}

func (r *repoPG) GetPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, amount_cents, method, reference, received_by, created_at
		FROM payment WHERE invoice_id = $1 ORDER BY created_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.AmountCents, &p.Method,
			&p.Reference, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}
