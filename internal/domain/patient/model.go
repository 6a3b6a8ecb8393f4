package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient statuses. Deleted patients are tombstoned, never erased; every
// read path filters them out.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Patient maps to the patient table.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	MRNumber  string     `db:"mr_number" json:"mr_number"`
	Name      string     `db:"name" json:"name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Sex       *string    `db:"sex" json:"sex,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Address   *string    `db:"address" json:"address,omitempty"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
