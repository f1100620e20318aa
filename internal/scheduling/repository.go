package scheduling

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Repository persists schedules and appointments
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new scheduling repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const appointmentColumns = `id, doctor_id, patient_id, schedule_id, appointment_time,
	   status, created_by, created_at, cancelled_at, notes`

// CreateAppointment inserts a new appointment
func (r *Repository) CreateAppointment(apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, schedule_id, appointment_time,
			status, created_by, created_at, cancelled_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		apt.ID,
		apt.DoctorID,
		apt.PatientID,
		apt.ScheduleID,
		apt.AppointmentTime,
		apt.Status,
		apt.CreatedBy,
		apt.CreatedAt,
		apt.CancelledAt,
		apt.Notes,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create appointment")
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// GetAppointmentByID retrieves an appointment by ID
func (r *Repository) GetAppointmentByID(id string) (*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	apt := &types.Appointment{}
	err := r.db.QueryRow(query, id).Scan(
		&apt.ID,
		&apt.DoctorID,
		&apt.PatientID,
		&apt.ScheduleID,
		&apt.AppointmentTime,
		&apt.Status,
		&apt.CreatedBy,
		&apt.CreatedAt,
		&apt.CancelledAt,
		&apt.Notes,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
		}
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to get appointment")
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return apt, nil
}

// SetAppointmentStatus writes the status and cancelled_at pair in a single
// UPDATE so the two columns are never observed out of sync.
func (r *Repository) SetAppointmentStatus(id string, status types.AppointmentStatus, cancelledAt *time.Time) error {
	query := `UPDATE appointments SET status = $1, cancelled_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, status, cancelledAt, id)
	if err != nil {
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to update appointment status")
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
	}

	return nil
}

// RescheduleAppointment moves the appointment to a new time and schedule,
// resets the status to Pending and clears any previous cancellation, all in
// one statement.
func (r *Repository) RescheduleAppointment(id string, appointmentTime time.Time, scheduleID string) error {
	query := `
		UPDATE appointments
		SET appointment_time = $1, schedule_id = $2, status = $3, cancelled_at = NULL
		WHERE id = $4`

	result, err := r.db.Exec(query, appointmentTime, scheduleID, types.StatusPending, id)
	if err != nil {
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to reschedule appointment")
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
	}

	return nil
}

// UpdateAppointment applies a partial update to an appointment's own fields
func (r *Repository) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.AppointmentTime != nil {
		setParts = append(setParts, fmt.Sprintf("appointment_time = $%d", argIndex))
		args = append(args, *updates.AppointmentTime)
		argIndex++
	}

	if updates.Notes != nil {
		setParts = append(setParts, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *updates.Notes)
		argIndex++
	}

	if len(setParts) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided.")
	}

	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d", strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to update appointment")
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
	}

	return nil
}

// DeleteAppointment removes an appointment
func (r *Repository) DeleteAppointment(id string) error {
	result, err := r.db.Exec(`DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to delete appointment")
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
	}

	return nil
}

// ListAppointments retrieves appointments based on filters
func (r *Repository) ListAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if filters.DoctorID != "" {
		query += fmt.Sprintf(" AND doctor_id = $%d", argIndex)
		args = append(args, filters.DoctorID)
		argIndex++
	}

	if filters.PatientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argIndex)
		args = append(args, filters.PatientID)
		argIndex++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filters.Status)
		argIndex++
	}

	if !filters.FromDate.IsZero() {
		query += fmt.Sprintf(" AND appointment_time >= $%d", argIndex)
		args = append(args, filters.FromDate)
		argIndex++
	}

	if !filters.ToDate.IsZero() {
		query += fmt.Sprintf(" AND appointment_time <= $%d", argIndex)
		args = append(args, filters.ToDate)
		argIndex++
	}

	query += " ORDER BY appointment_time ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list appointments")
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*types.Appointment
	for rows.Next() {
		apt := &types.Appointment{}
		err := rows.Scan(
			&apt.ID,
			&apt.DoctorID,
			&apt.PatientID,
			&apt.ScheduleID,
			&apt.AppointmentTime,
			&apt.Status,
			&apt.CreatedBy,
			&apt.CreatedAt,
			&apt.CancelledAt,
			&apt.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}

// CreateSchedule inserts a new schedule
func (r *Repository) CreateSchedule(s *types.Schedule) error {
	query := `
		INSERT INTO schedules (id, doctor_id, weekday, start_time, end_time, location, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		s.ID,
		s.DoctorID,
		s.Weekday,
		s.StartTime,
		s.EndTime,
		s.Location,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create schedule")
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

// GetScheduleByID retrieves a schedule by ID
func (r *Repository) GetScheduleByID(id string) (*types.Schedule, error) {
	query := `
		SELECT id, doctor_id, weekday, start_time, end_time, location, is_active, created_at, updated_at
		FROM schedules
		WHERE id = $1`

	s := &types.Schedule{}
	err := r.db.QueryRow(query, id).Scan(
		&s.ID,
		&s.DoctorID,
		&s.Weekday,
		&s.StartTime,
		&s.EndTime,
		&s.Location,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Schedule not found.")
		}
		r.logger.WithError(err).WithField("schedule_id", id).Error("Failed to get schedule")
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return s, nil
}

// ListSchedules retrieves schedules, optionally filtered to one doctor
func (r *Repository) ListSchedules(doctorID string) ([]*types.Schedule, error) {
	query := `
		SELECT id, doctor_id, weekday, start_time, end_time, location, is_active, created_at, updated_at
		FROM schedules`

	args := []interface{}{}
	if doctorID != "" {
		query += ` WHERE doctor_id = $1`
		args = append(args, doctorID)
	}

	query += ` ORDER BY weekday ASC, start_time ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list schedules")
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*types.Schedule
	for rows.Next() {
		s := &types.Schedule{}
		err := rows.Scan(
			&s.ID,
			&s.DoctorID,
			&s.Weekday,
			&s.StartTime,
			&s.EndTime,
			&s.Location,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

// UpdateSchedule applies a partial update to a schedule
func (r *Repository) UpdateSchedule(id string, updates *types.ScheduleUpdates) error {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.Weekday != nil {
		setParts = append(setParts, fmt.Sprintf("weekday = $%d", argIndex))
		args = append(args, *updates.Weekday)
		argIndex++
	}

	if updates.StartTime != nil {
		setParts = append(setParts, fmt.Sprintf("start_time = $%d", argIndex))
		args = append(args, *updates.StartTime)
		argIndex++
	}

	if updates.EndTime != nil {
		setParts = append(setParts, fmt.Sprintf("end_time = $%d", argIndex))
		args = append(args, *updates.EndTime)
		argIndex++
	}

	if updates.Location != nil {
		setParts = append(setParts, fmt.Sprintf("location = $%d", argIndex))
		args = append(args, *updates.Location)
		argIndex++
	}

	if updates.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *updates.IsActive)
		argIndex++
	}

	if len(setParts) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided.")
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	query := fmt.Sprintf("UPDATE schedules SET %s WHERE id = $%d", strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.WithError(err).WithField("schedule_id", id).Error("Failed to update schedule")
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Schedule not found.")
	}

	return nil
}

// DeleteSchedule removes a schedule
func (r *Repository) DeleteSchedule(id string) error {
	result, err := r.db.Exec(`DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("schedule_id", id).Error("Failed to delete schedule")
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Schedule not found.")
	}

	return nil
}
