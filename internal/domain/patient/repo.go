package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patients. Reads exclude tombstoned rows.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRNumber(ctx context.Context, mrNumber string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	MarkDeleted(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, nameFilter string, limit, offset int) ([]*Patient, int, error)
}
