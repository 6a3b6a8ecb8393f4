package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
)

// Prescription is the doctor's drug order for a visit. One prescription per
// medical record; dispensing is a one-way door.
type Prescription struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Number      string     `db:"rx_number" json:"rx_number"`
	RecordID    uuid.UUID  `db:"record_id" json:"record_id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	IsDispensed bool       `db:"is_dispensed" json:"is_dispensed"`
	DispensedAt *time.Time `db:"dispensed_at" json:"dispensed_at,omitempty"`
	DispensedBy *uuid.UUID `db:"dispensed_by" json:"dispensed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Items []*Item `db:"-" json:"items,omitempty"`
}

// Item is one drug line on a prescription.
type Item struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	DrugName       string    `db:"drug_name" json:"drug_name"`
	Dosage         string    `db:"dosage" json:"dosage"`
	Frequency      string    `db:"frequency" json:"frequency"`
	Quantity       int       `db:"quantity" json:"quantity"`
	Instructions   *string   `db:"instructions" json:"instructions,omitempty"`
}

// ItemInput is one drug line in a create or update request.
type ItemInput struct {
	DrugName     string  `json:"drug_name"`
	Dosage       string  `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Quantity     int     `json:"quantity"`
	Instructions *string `json:"instructions,omitempty"`
}

// ValidateItems checks the drug lines of a request.
func ValidateItems(items []ItemInput) error {
	if len(items) == 0 {
		return clinicerr.New(clinicerr.Validation, "prescription needs at least one item")
	}
	for _, it := range items {
		if it.DrugName == "" {
			return clinicerr.New(clinicerr.Validation, "drug name is required")
		}
		if it.Dosage == "" {
			return clinicerr.Newf(clinicerr.Validation, "dosage is required for %s", it.DrugName)
		}
		if it.Frequency == "" {
			return clinicerr.Newf(clinicerr.Validation, "frequency is required for %s", it.DrugName)
		}
		if it.Quantity <= 0 {
			return clinicerr.Newf(clinicerr.Validation, "quantity for %s must be positive", it.DrugName)
		}
	}
	return nil
}
