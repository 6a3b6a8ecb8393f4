package medrecord

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

const recordCols = `id, queue_id, patient_id, doctor_id, vital_sign_id, subjective,
	objective, assessment, plan, is_locked, locked_at, created_at, updated_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(&rec.ID, &rec.QueueID, &rec.PatientID, &rec.DoctorID, &rec.VitalSignID,
		&rec.Subjective, &rec.Objective, &rec.Assessment, &rec.Plan,
		&rec.IsLocked, &rec.LockedAt, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord, diagnoses []*Diagnosis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (id, queue_id, patient_id, doctor_id, vital_sign_id,
			subjective, objective, assessment, plan)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.QueueID, rec.PatientID, rec.DoctorID, rec.VitalSignID,
		rec.Subjective, rec.Objective, rec.Assessment, rec.Plan)
	if err != nil {
		return err
	}
	return r.insertDiagnoses(ctx, diagnoses)
}

func (r *repoPG) insertDiagnoses(ctx context.Context, diagnoses []*Diagnosis) error {
	conn := r.conn(ctx)
	for _, d := range diagnoses {
		_, err := conn.Exec(ctx, `
			INSERT INTO record_diagnosis (id, record_id, code, description, is_primary)
			VALUES ($1,$2,$3,$4,$5)`,
			d.ID, d.RecordID, d.Code, d.Description, d.IsPrimary)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE id = $1`, id))
}

func (r *repoPG) GetByQueueID(ctx context.Context, queueID uuid.UUID) (*MedicalRecord, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE queue_id = $1`, queueID))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_record SET vital_sign_id=$2, subjective=$3, objective=$4,
			assessment=$5, plan=$6, is_locked=$7, locked_at=$8, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.VitalSignID, rec.Subjective, rec.Objective,
		rec.Assessment, rec.Plan, rec.IsLocked, rec.LockedAt)
	return err
}

func (r *repoPG) ReplaceDiagnoses(ctx context.Context, recordID uuid.UUID, diagnoses []*Diagnosis) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM record_diagnosis WHERE record_id = $1`, recordID); err != nil {
		return err
	}
	return r.insertDiagnoses(ctx, diagnoses)
}

func (r *repoPG) GetDiagnoses(ctx context.Context, recordID uuid.UUID) ([]*Diagnosis, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, record_id, code, description, is_primary
		FROM record_diagnosis WHERE record_id = $1
		ORDER BY is_primary DESC, code`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.RecordID, &d.Code, &d.Description, &d.IsPrimary); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	conn := r.conn(ctx)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_record WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `
		SELECT `+recordCols+` FROM medical_record
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) LockStale(ctx context.Context, cutoff, lockedAt time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_record SET is_locked = TRUE, locked_at = $2, updated_at = NOW()
		WHERE is_locked = FALSE AND created_at < $1`, cutoff, lockedAt)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) CreateAddendum(ctx context.Context, a *Addendum) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO record_addendum (id, record_id, author_id, content)
		VALUES ($1,$2,$3,$4)`,
		a.ID, a.RecordID, a.AuthorID, a.Content)
	return err
}

func (r *repoPG) GetAddendum(ctx context.Context, id uuid.UUID) (*Addendum, error) {
	var a Addendum
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, record_id, author_id, content, created_at, updated_at
		FROM record_addendum WHERE id = $1`, id).
		Scan(&a.ID, &a.RecordID, &a.AuthorID, &a.Content, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) UpdateAddendum(ctx context.Context, a *Addendum) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE record_addendum SET content = $2, updated_at = NOW() WHERE id = $1`,
		a.ID, a.Content)
	return err
}

func (r *repoPG) DeleteAddendum(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM record_addendum WHERE id = $1`, id)
	return err
}

func (r *repoPG) GetAddenda(ctx context.Context, recordID uuid.UUID) ([]*Addendum, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, record_id, author_id, content, created_at, updated_at
		FROM record_addendum WHERE record_id = $1 ORDER BY created_at`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Addendum
	for rows.Next() {
		var a Addendum
		if err := rows.Scan(&a.ID, &a.RecordID, &a.AuthorID, &a.Content, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
