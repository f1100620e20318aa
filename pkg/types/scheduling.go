package types

import "time"

// Schedule represents a doctor's recurring weekly availability template.
// It is advisory only and does not reserve time.
type Schedule struct {
	ID        string    `json:"id" db:"id"`
	DoctorID  string    `json:"doctor_id" db:"doctor_id"`
	Weekday   int       `json:"weekday" db:"weekday"`
	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	Location  string    `json:"location" db:"location"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AccessParticipants returns the parties with ownership over the schedule
func (s *Schedule) AccessParticipants() (doctorID, patientID string) {
	return s.DoctorID, ""
}

// AppointmentStatus represents appointment lifecycle status values
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCancelled AppointmentStatus = "Cancelled"
	StatusCompleted AppointmentStatus = "Completed"
	StatusNoShow    AppointmentStatus = "NoShow"
)

// IsValid reports whether the status is a known member of the status enum
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Appointment represents a booked encounter between a doctor and a patient.
// Invariant: Status == Cancelled exactly when CancelledAt is non-nil.
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	DoctorID        string            `json:"doctor_id" db:"doctor_id"`
	PatientID       string            `json:"patient_id" db:"patient_id"`
	ScheduleID      *string           `json:"schedule_id,omitempty" db:"schedule_id"`
	AppointmentTime time.Time         `json:"appointment_time" db:"appointment_time"`
	Status          AppointmentStatus `json:"status" db:"status"`
	CreatedBy       string            `json:"created_by" db:"created_by"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty" db:"cancelled_at"`
	Notes           string            `json:"notes" db:"notes"`
}

// AccessParticipants returns the parties with ownership over the appointment
func (a *Appointment) AccessParticipants() (doctorID, patientID string) {
	return a.DoctorID, a.PatientID
}

// AppointmentCreateRequest is the booking payload. It deliberately carries no
// created_by field: the acting principal is stamped server-side.
type AppointmentCreateRequest struct {
	DoctorID        string    `json:"doctor_id"`
	PatientID       string    `json:"patient_id"`
	ScheduleID      *string   `json:"schedule_id,omitempty"`
	AppointmentTime time.Time `json:"appointment_time"`
	Notes           string    `json:"notes,omitempty"`
}

// RescheduleRequest carries the new time and schedule for a reschedule.
// Both fields are required together.
type RescheduleRequest struct {
	AppointmentTime *time.Time `json:"appointment_time,omitempty"`
	ScheduleID      *string    `json:"schedule_id,omitempty"`
}

// StatusUpdateRequest carries the target status for a status update
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// AppointmentUpdates represents a partial update to an appointment's own
// fields. Status changes go through the dedicated lifecycle operations.
type AppointmentUpdates struct {
	AppointmentTime *time.Time `json:"appointment_time,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// AppointmentFilters represents filters for appointment queries
type AppointmentFilters struct {
	DoctorID  string            `json:"doctor_id,omitempty"`
	PatientID string            `json:"patient_id,omitempty"`
	Status    AppointmentStatus `json:"status,omitempty"`
	FromDate  time.Time         `json:"from_date,omitempty"`
	ToDate    time.Time         `json:"to_date,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
}

// ScheduleUpdates represents a partial update to a schedule
type ScheduleUpdates struct {
	Weekday   *int    `json:"weekday,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Location  *string `json:"location,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
