package queue

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Queue statuses. Completed and cancelled are terminal: entries never leave
// them and are never deleted.
const (
	StatusWaiting        = "waiting"
	StatusVitals         = "vitals"
	StatusInConsultation = "in_consultation"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

// Priorities. Urgent entries sort before normal ones in the daily queue.
const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

// IsTerminal reports whether status is final.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// ValidStatus reports whether status is one of the five queue statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusWaiting, StatusVitals, StatusInConsultation, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Queue maps to the queue table: one patient's position in one doctor's
// daily queue. queue_number is unique per (doctor, date) and starts at 1.
type Queue struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Date        time.Time  `db:"date" json:"date"`
	Number      int        `db:"queue_number" json:"queue_number"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	CalledAt    *time.Time `db:"called_at" json:"called_at,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// VitalSign maps to the vital_sign table. At most one row exists per queue
// entry; this is a business rule, not just the unique constraint.
type VitalSign struct {
	ID           uuid.UUID `db:"id" json:"id"`
	QueueID      uuid.UUID `db:"queue_id" json:"queue_id"`
	HeightCM     *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG     *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	BMI          *float64  `db:"bmi" json:"bmi,omitempty"`
	Systolic     *int      `db:"systolic" json:"systolic,omitempty"`
	Diastolic    *int      `db:"diastolic" json:"diastolic,omitempty"`
	PulseRate    *int      `db:"pulse_rate" json:"pulse_rate,omitempty"`
	TemperatureC *float64  `db:"temperature_c" json:"temperature_c,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	RecordedBy   uuid.UUID `db:"recorded_by" json:"recorded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ComputeBMI derives body mass index from weight and height, rounded to one
// decimal. Zero when either measurement is missing or not positive.
func ComputeBMI(weightKG, heightCM float64) float64 {
	if weightKG <= 0 || heightCM <= 0 {
		return 0
	}
	m := heightCM / 100
	return math.Round(weightKG/(m*m)*10) / 10
}

// RefreshBMI recomputes the derived BMI from the current measurements.
// Called whenever weight or height changes.
func (v *VitalSign) RefreshBMI() {
	if v.WeightKG == nil || v.HeightCM == nil {
		v.BMI = nil
		return
	}
	bmi := ComputeBMI(*v.WeightKG, *v.HeightCM)
	v.BMI = &bmi
}
