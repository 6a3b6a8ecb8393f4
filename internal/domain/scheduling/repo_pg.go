package scheduling

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

const schedCols = `id, doctor_id, date, start_time, end_time, available, notes, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Available, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Schedule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule (id, doctor_id, date, start_time, end_time, available, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.DoctorID, s.Date, s.StartTime, s.EndTime, s.Available, s.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM schedule WHERE id = $1`, id))
}

func (r *repoPG) GetByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM schedule WHERE doctor_id = $1 AND date = $2`, doctorID, date))
}

func (r *repoPG) Update(ctx context.Context, s *Schedule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule SET date=$2, start_time=$3, end_time=$4, available=$5, notes=$6, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Date, s.StartTime, s.EndTime, s.Available, s.Notes)
	return err
}

func (r *repoPG) ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Schedule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM schedule WHERE date = $1`, date).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+schedCols+` FROM schedule WHERE date = $1 ORDER BY start_time LIMIT $2 OFFSET $3`,
		date, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSchedules(rows, total)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time, limit, offset int) ([]*Schedule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM schedule WHERE doctor_id = $1 AND date >= $2`, doctorID, from).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+schedCols+` FROM schedule WHERE doctor_id = $1 AND date >= $2 ORDER BY date LIMIT $3 OFFSET $4`,
		doctorID, from, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSchedules(rows, total)
}

func collectSchedules(rows pgx.Rows, total int) ([]*Schedule, int, error) {
	var items []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
