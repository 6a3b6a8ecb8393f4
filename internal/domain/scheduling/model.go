package scheduling

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Schedule maps to the schedule table: one row per doctor per day saying
// whether and when the doctor accepts visits. At most one schedule exists
// per (doctor, date).
type Schedule struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Available bool      `db:"available" json:"available"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTimeOfDay reports whether s is a wall-clock time in HH:MM form.
func ValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}
