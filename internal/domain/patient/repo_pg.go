package patient

import (
	"context"
	"fmt"

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

const patientCols = `id, mr_number, name, birth_date, sex, phone, address, status, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRNumber, &p.Name, &p.BirthDate, &p.Sex, &p.Phone,
		&p.Address, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, mr_number, name, birth_date, sex, phone, address, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.MRNumber, p.Name, p.BirthDate, p.Sex, p.Phone, p.Address, p.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND status <> 'deleted'`, id))
}

func (r *repoPG) GetByMRNumber(ctx context.Context, mrNumber string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE mr_number = $1 AND status <> 'deleted'`, mrNumber))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET name=$2, birth_date=$3, sex=$4, phone=$5, address=$6, updated_at=NOW()
		WHERE id = $1 AND status <> 'deleted'`,
		p.ID, p.Name, p.BirthDate, p.Sex, p.Phone, p.Address)
	return err
}

func (r *repoPG) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET status='deleted', updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, nameFilter string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE status <> 'deleted'`
	countQuery := `SELECT COUNT(*) FROM patient WHERE status <> 'deleted'`
	var args []interface{}
	idx := 1

	if nameFilter != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+nameFilter+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
