package prescription

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

const rxCols = `id, rx_number, record_id, doctor_id, notes, is_dispensed,
	dispensed_at, dispensed_by, created_at, updated_at`

func scanRx(row pgx.Row) (*Prescription, error) {
	var rx Prescription
	err := row.Scan(&rx.ID, &rx.Number, &rx.RecordID, &rx.DoctorID, &rx.Notes,
		&rx.IsDispensed, &rx.DispensedAt, &rx.DispensedBy, &rx.CreatedAt, &rx.UpdatedAt)
	return &rx, err
}

func (r *repoPG) Create(ctx context.Context, rx *Prescription, items []*Item) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, rx_number, record_id, doctor_id, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		rx.ID, rx.Number, rx.RecordID, rx.DoctorID, rx.Notes)
	if err != nil {
		return err
	}
	return r.insertItems(ctx, items)
}

func (r *repoPG) insertItems(ctx context.Context, items []*Item) error {
	conn := r.conn(ctx)
	for _, it := range items {
		_, err := conn.Exec(ctx, `
			INSERT INTO prescription_item (id, prescription_id, drug_name, dosage, frequency, quantity, instructions)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, it.PrescriptionID, it.DrugName, it.Dosage, it.Frequency, it.Quantity, it.Instructions)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanRx(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) GetByRecordID(ctx context.Context, recordID uuid.UUID) (*Prescription, error) {
	return scanRx(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE record_id = $1`, recordID))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanRx(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, rx *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET notes=$2, is_dispensed=$3, dispensed_at=$4,
			dispensed_by=$5, updated_at=NOW()
		WHERE id = $1`,
		rx.ID, rx.Notes, rx.IsDispensed, rx.DispensedAt, rx.DispensedBy)
	return err
}

func (r *repoPG) ReplaceItems(ctx context.Context, prescriptionID uuid.UUID, items []*Item) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM prescription_item WHERE prescription_id = $1`, prescriptionID); err != nil {
		return err
	}
	return r.insertItems(ctx, items)
}

func (r *repoPG) GetItems(ctx context.Context, prescriptionID uuid.UUID) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, drug_name, dosage, frequency, quantity, instructions
		FROM prescription_item WHERE prescription_id = $1 ORDER BY drug_name, id`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.DrugName, &it.Dosage,
			&it.Frequency, &it.Quantity, &it.Instructions); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}
