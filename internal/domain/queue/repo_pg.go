package queue

import (
	"context"
	"time"

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

const queueCols = `id, doctor_id, patient_id, date, queue_number, status, priority,
	called_at, started_at, completed_at, created_at, updated_at`

func scanQueue(row pgx.Row) (*Queue, error) {
	var q Queue
	err := row.Scan(&q.ID, &q.DoctorID, &q.PatientID, &q.Date, &q.Number, &q.Status,
		&q.Priority, &q.CalledAt, &q.StartedAt, &q.CompletedAt, &q.CreatedAt, &q.UpdatedAt)
	return &q, err
}

func (r *repoPG) Create(ctx context.Context, q *Queue) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO queue (id, doctor_id, patient_id, date, queue_number, status, priority)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.DoctorID, q.PatientID, q.Date, q.Number, q.Status, q.Priority)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Queue, error) {
	return scanQueue(r.conn(ctx).QueryRow(ctx,
		`SELECT `+queueCols+` FROM queue WHERE id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Queue, error) {
	return scanQueue(r.conn(ctx).QueryRow(ctx,
		`SELECT `+queueCols+` FROM queue WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, q *Queue) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue SET date=$2, status=$3, priority=$4, called_at=$5, started_at=$6,
			completed_at=$7, updated_at=NOW()
		WHERE id = $1`,
		q.ID, q.Date, q.Status, q.Priority, q.CalledAt, q.StartedAt, q.CompletedAt)
	return err
}

func (r *repoPG) HasActiveVisit(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM queue
			WHERE doctor_id = $1 AND patient_id = $2 AND date = $3
			  AND status NOT IN ('completed', 'cancelled')
		)`, doctorID, patientID, date).Scan(&exists)
	return exists, err
}

func (r *repoPG) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Queue, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+queueCols+` FROM queue
		WHERE doctor_id = $1 AND date = $2
		ORDER BY (priority = 'urgent') DESC, queue_number`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (r *repoPG) CountByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM queue WHERE doctor_id = $1 AND date = $2`, doctorID, date).Scan(&count)
	return count, err
}

func (r *repoPG) CountNonWaiting(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM queue WHERE doctor_id = $1 AND date = $2 AND status <> 'waiting'`,
		doctorID, date).Scan(&count)
	return count, err
}

func (r *repoPG) MoveWaiting(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue SET date = $3, updated_at = NOW()
		WHERE doctor_id = $1 AND date = $2 AND status = 'waiting'`, doctorID, from, to)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type vitalRepoPG struct{ pool *pgxpool.Pool }

func NewVitalSignRepoPG(pool *pgxpool.Pool) VitalSignRepository { return &vitalRepoPG{pool: pool} }

func (r *vitalRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const vitalCols = `id, queue_id, height_cm, weight_kg, bmi, systolic, diastolic,
	pulse_rate, temperature_c, notes, recorded_by, created_at, updated_at`

func scanVital(row pgx.Row) (*VitalSign, error) {
	var v VitalSign
	err := row.Scan(&v.ID, &v.QueueID, &v.HeightCM, &v.WeightKG, &v.BMI, &v.Systolic,
		&v.Diastolic, &v.PulseRate, &v.TemperatureC, &v.Notes, &v.RecordedBy,
		&v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *vitalRepoPG) Create(ctx context.Context, v *VitalSign) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_sign (id, queue_id, height_cm, weight_kg, bmi, systolic,
			diastolic, pulse_rate, temperature_c, notes, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.QueueID, v.HeightCM, v.WeightKG, v.BMI, v.Systolic,
		v.Diastolic, v.PulseRate, v.TemperatureC, v.Notes, v.RecordedBy)
	return err
}

func (r *vitalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*VitalSign, error) {
	return scanVital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_sign WHERE id = $1`, id))
}

func (r *vitalRepoPG) GetByQueueID(ctx context.Context, queueID uuid.UUID) (*VitalSign, error) {
	return scanVital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vitalCols+` FROM vital_sign WHERE queue_id = $1`, queueID))
}

func (r *vitalRepoPG) Update(ctx context.Context, v *VitalSign) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE vital_sign SET height_cm=$2, weight_kg=$3, bmi=$4, systolic=$5,
			diastolic=$6, pulse_rate=$7, temperature_c=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.HeightCM, v.WeightKG, v.BMI, v.Systolic, v.Diastolic,
		v.PulseRate, v.TemperatureC, v.Notes)
	return err
}

func (r *vitalRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM vital_sign WHERE id = $1`, id)
	return err
}
