package medrecord

import (
	"time"

	"github.com/google/uuid"

	"github.com/cuinc99/docdoc/internal/domain/clinicerr"
)

// MedicalRecord is the SOAP note for a single visit. One record per visit;
// once locked the note itself is immutable and corrections go through
// addenda.
type MedicalRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	QueueID     uuid.UUID  `db:"queue_id" json:"queue_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	VitalSignID *uuid.UUID `db:"vital_sign_id" json:"vital_sign_id,omitempty"`
	Subjective  *string    `db:"subjective" json:"subjective,omitempty"`
	Objective   *string    `db:"objective" json:"objective,omitempty"`
	Assessment  *string    `db:"assessment" json:"assessment,omitempty"`
	Plan        *string    `db:"plan" json:"plan,omitempty"`
	IsLocked    bool       `db:"is_locked" json:"is_locked"`
	LockedAt    *time.Time `db:"locked_at" json:"locked_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Diagnoses []*Diagnosis `db:"-" json:"diagnoses,omitempty"`
	Addenda   []*Addendum  `db:"-" json:"addenda,omitempty"`
}

// Diagnosis is one coded diagnosis on a record. Exactly one diagnosis per
// record is primary.
type Diagnosis struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RecordID    uuid.UUID `db:"record_id" json:"record_id"`
	Code        string    `db:"code" json:"code"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsPrimary   bool      `db:"is_primary" json:"is_primary"`
}

// Addendum is a dated correction or amendment appended to a record. Addenda
// stay editable by their author after the record locks.
type Addendum struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RecordID  uuid.UUID `db:"record_id" json:"record_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DiagnosisInput is one diagnosis line in a create or update request.
type DiagnosisInput struct {
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
	IsPrimary   bool    `json:"is_primary"`
}

// ValidateDiagnoses enforces the one-primary rule on a diagnosis set.
func ValidateDiagnoses(items []DiagnosisInput) error {
	if len(items) == 0 {
		return clinicerr.New(clinicerr.Validation, "record needs at least one diagnosis")
	}
	primaries := 0
	for _, d := range items {
		if d.Code == "" {
			return clinicerr.New(clinicerr.Validation, "diagnosis code is required")
		}
		if d.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		return clinicerr.Newf(clinicerr.Validation, "exactly one primary diagnosis required, got %d", primaries)
	}
	return nil
}
