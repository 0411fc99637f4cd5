package models

import "time"

// ScheduleStatus is derived from seat availability, except for completed.
type ScheduleStatus string

const (
	ScheduleStatusOpen      ScheduleStatus = "open"
	ScheduleStatusFilling   ScheduleStatus = "filling"
	ScheduleStatusSoldOut   ScheduleStatus = "sold_out"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// FillingThreshold is the highest seat count still reported as filling.
const FillingThreshold = 3

// CourseSchedule is one offering of a course with finite capacity.
type CourseSchedule struct {
	ID             string         `db:"id" json:"id"`
	CourseID       *string        `db:"course_id" json:"course_id,omitempty"`
	StartDate      *time.Time     `db:"start_date" json:"start_date,omitempty"`
	Location       string         `db:"location" json:"location"`
	SpotsTotal     int            `db:"spots_total" json:"spots_total"`
	SpotsAvailable int            `db:"spots_available" json:"spots_available"`
	Status         ScheduleStatus `db:"status" json:"status"`
}

// DeriveScheduleStatus maps remaining seats to a status.
func DeriveScheduleStatus(available int) ScheduleStatus {
	switch {
	case available <= 0:
		return ScheduleStatusSoldOut
	case available <= FillingThreshold:
		return ScheduleStatusFilling
	default:
		return ScheduleStatusOpen
	}
}
