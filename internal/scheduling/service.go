// Package scheduling manages doctor availability templates and the
// appointment lifecycle around them.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/policy"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Store is the persistence surface the service depends on
type Store interface {
	CreateAppointment(apt *types.Appointment) error
	GetAppointmentByID(id string) (*types.Appointment, error)
	ListAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error)
	SetAppointmentStatus(id string, status types.AppointmentStatus, cancelledAt *time.Time) error
	UpdateAppointment(id string, updates *types.AppointmentUpdates) error
	RescheduleAppointment(id string, appointmentTime time.Time, scheduleID string) error
	DeleteAppointment(id string) error

	CreateSchedule(s *types.Schedule) error
	GetScheduleByID(id string) (*types.Schedule, error)
	ListSchedules(doctorID string) ([]*types.Schedule, error)
	UpdateSchedule(id string, updates *types.ScheduleUpdates) error
	DeleteSchedule(id string) error
}

// ActivityRecorder receives audit entries and user notifications for
// lifecycle events. Failures here never fail the operation itself.
type ActivityRecorder interface {
	Record(ctx context.Context, action, target, details string) error
	Notify(ctx context.Context, recipientID string, nType types.NotificationType, title, content string) error
}

// Service implements scheduling business logic
type Service struct {
	store    Store
	policy   *policy.Engine
	activity ActivityRecorder
	logger   *logger.Logger
}

// NewService creates a new scheduling service
func NewService(store Store, engine *policy.Engine, activity ActivityRecorder, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		policy:   engine,
		activity: activity,
		logger:   log,
	}
}

// CreateAppointment books a new appointment. The status always starts at
// Pending and created_by is stamped from the authenticated caller, never
// from the payload.
func (s *Service) CreateAppointment(ctx context.Context, actor *types.UserClaims, req *types.AppointmentCreateRequest) (*types.Appointment, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if req.DoctorID == "" || req.PatientID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "doctor_id and patient_id are required.")
	}

	if req.AppointmentTime.IsZero() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "appointment_time is required.")
	}

	if req.ScheduleID != nil {
		sched, err := s.store.GetScheduleByID(*req.ScheduleID)
		if err != nil {
			return nil, err
		}
		if sched.DoctorID != req.DoctorID {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Schedule does not belong to the requested doctor.")
		}
	}

	apt := &types.Appointment{
		ID:              uuid.New().String(),
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		ScheduleID:      req.ScheduleID,
		AppointmentTime: req.AppointmentTime,
		Status:          types.StatusPending,
		CreatedBy:       actor.UserID,
		CreatedAt:       time.Now(),
		Notes:           req.Notes,
	}

	if err := s.store.CreateAppointment(apt); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "appointment.create", apt.ID, fmt.Sprintf("doctor=%s patient=%s", apt.DoctorID, apt.PatientID))
	s.notifyParties(ctx, apt, "Appointment booked",
		fmt.Sprintf("An appointment was booked for %s.", apt.AppointmentTime.Format(time.RFC3339)))

	s.logger.WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"patient_id":     apt.PatientID,
		"created_by":     apt.CreatedBy,
	}).Info("Appointment created")

	return apt, nil
}

// GetAppointment retrieves a single appointment if the caller may see it
func (s *Service) GetAppointment(ctx context.Context, actor *types.UserClaims, id string) (*types.Appointment, error) {
	apt, err := s.store.GetAppointmentByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionView, apt) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this appointment.")
	}

	return apt, nil
}

// ListAppointments returns the appointments visible to the caller. Staff see
// everything, doctors see their own calendar, everyone else sees the
// appointments where they are the patient.
func (s *Service) ListAppointments(ctx context.Context, actor *types.UserClaims, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if filters == nil {
		filters = &types.AppointmentFilters{}
	}

	switch {
	case actor.Role.IsStaff():
		// staff may filter freely
	case actor.Role == types.RoleDoctor:
		filters.DoctorID = actor.UserID
	default:
		filters.PatientID = actor.UserID
	}

	return s.store.ListAppointments(filters)
}

// CancelAppointment cancels an appointment. Cancelling twice is a conflict,
// not a silent success. Status and the cancellation timestamp change
// together in one write.
func (s *Service) CancelAppointment(ctx context.Context, actor *types.UserClaims, id string) (*types.Appointment, error) {
	apt, err := s.store.GetAppointmentByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpdate, apt) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to cancel this appointment.")
	}

	if apt.Status == types.StatusCancelled {
		return nil, types.NewConflictError(types.ErrCodeAlreadyCancelled, "Appointment already cancelled.")
	}

	now := time.Now()
	if err := s.store.SetAppointmentStatus(id, types.StatusCancelled, &now); err != nil {
		return nil, err
	}

	apt.Status = types.StatusCancelled
	apt.CancelledAt = &now

	s.recordActivity(ctx, "appointment.cancel", apt.ID, "")
	s.notifyParties(ctx, apt, "Appointment cancelled",
		fmt.Sprintf("The appointment at %s was cancelled.", apt.AppointmentTime.Format(time.RFC3339)))

	s.logger.WithField("appointment_id", id).Info("Appointment cancelled")
	return apt, nil
}

// RescheduleAppointment moves an appointment to a new time slot. Both the
// new time and the new schedule must be supplied; the appointment drops back
// to Pending and any previous cancellation is cleared.
func (s *Service) RescheduleAppointment(ctx context.Context, actor *types.UserClaims, id string, req *types.RescheduleRequest) (*types.Appointment, error) {
	if req.AppointmentTime == nil || req.ScheduleID == nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Both appointment_time and schedule are required.")
	}

	apt, err := s.store.GetAppointmentByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpdate, apt) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to reschedule this appointment.")
	}

	sched, err := s.store.GetScheduleByID(*req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if sched.DoctorID != apt.DoctorID {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Schedule does not belong to the appointment's doctor.")
	}

	if err := s.store.RescheduleAppointment(id, *req.AppointmentTime, *req.ScheduleID); err != nil {
		return nil, err
	}

	apt.AppointmentTime = *req.AppointmentTime
	apt.ScheduleID = req.ScheduleID
	apt.Status = types.StatusPending
	apt.CancelledAt = nil

	s.recordActivity(ctx, "appointment.reschedule", apt.ID, fmt.Sprintf("new_time=%s", req.AppointmentTime.Format(time.RFC3339)))
	s.notifyParties(ctx, apt, "Appointment rescheduled",
		fmt.Sprintf("The appointment was moved to %s.", req.AppointmentTime.Format(time.RFC3339)))

	s.logger.WithField("appointment_id", id).Info("Appointment rescheduled")
	return apt, nil
}

// UpdateAppointmentStatus transitions an appointment to a new lifecycle
// status. Moving into Cancelled stamps the cancellation time; moving out of
// it clears the stamp, so the pair can never disagree.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, actor *types.UserClaims, id string, newStatus string) (*types.Appointment, error) {
	status := types.AppointmentStatus(newStatus)
	if !status.IsValid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidStatus, fmt.Sprintf("Invalid status %q.", newStatus))
	}

	apt, err := s.store.GetAppointmentByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpdate, apt) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to update this appointment.")
	}

	var cancelledAt *time.Time
	if status == types.StatusCancelled {
		if apt.CancelledAt != nil {
			cancelledAt = apt.CancelledAt
		} else {
			now := time.Now()
			cancelledAt = &now
		}
	}

	if err := s.store.SetAppointmentStatus(id, status, cancelledAt); err != nil {
		return nil, err
	}

	apt.Status = status
	apt.CancelledAt = cancelledAt

	s.recordActivity(ctx, "appointment.update_status", apt.ID, fmt.Sprintf("status=%s", status))

	s.logger.WithFields(map[string]interface{}{
		"appointment_id": id,
		"status":         status,
	}).Info("Appointment status updated")

	return apt, nil
}

// UpdateAppointment applies a partial update to an appointment's time or
// notes. Lifecycle transitions stay with the dedicated operations.
func (s *Service) UpdateAppointment(ctx context.Context, actor *types.UserClaims, id string, updates *types.AppointmentUpdates) (*types.Appointment, error) {
	apt, err := s.store.GetAppointmentByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpdate, apt) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to update this appointment.")
	}

	if err := s.store.UpdateAppointment(id, updates); err != nil {
		return nil, err
	}

	if updates.AppointmentTime != nil {
		apt.AppointmentTime = *updates.AppointmentTime
	}
	if updates.Notes != nil {
		apt.Notes = *updates.Notes
	}

	s.recordActivity(ctx, "appointment.update", id, "")
	return apt, nil
}

// DeleteAppointment removes an appointment entirely
func (s *Service) DeleteAppointment(ctx context.Context, actor *types.UserClaims, id string) error {
	apt, err := s.store.GetAppointmentByID(id)
	if err != nil {
		return err
	}

	if !s.policy.CanAccess(actor, policy.ActionDelete, apt) {
		return types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to delete this appointment.")
	}

	if err := s.store.DeleteAppointment(id); err != nil {
		return err
	}

	s.recordActivity(ctx, "appointment.delete", id, "")
	return nil
}

// CreateSchedule registers a weekly availability slot for a doctor. Doctors
// may only create slots for themselves; staff may create them for anyone.
func (s *Service) CreateSchedule(ctx context.Context, actor *types.UserClaims, sched *types.Schedule) (*types.Schedule, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if sched.DoctorID == "" {
		sched.DoctorID = actor.UserID
	}

	if !actor.Role.IsStaff() && sched.DoctorID != actor.UserID {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You may only manage your own schedule.")
	}

	if sched.Weekday < 0 || sched.Weekday > 6 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "weekday must be between 0 and 6.")
	}

	if err := validateTimeOfDay(sched.StartTime); err != nil {
		return nil, err
	}
	if err := validateTimeOfDay(sched.EndTime); err != nil {
		return nil, err
	}
	if sched.StartTime >= sched.EndTime {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "start_time must be before end_time.")
	}

	sched.ID = uuid.New().String()
	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	if err := s.store.CreateSchedule(sched); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "schedule.create", sched.ID, fmt.Sprintf("doctor=%s weekday=%d", sched.DoctorID, sched.Weekday))
	return sched, nil
}

// GetSchedule retrieves a schedule. Staff see every schedule, doctors
// only their own.
func (s *Service) GetSchedule(ctx context.Context, actor *types.UserClaims, id string) (*types.Schedule, error) {
	sched, err := s.store.GetScheduleByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionView, sched) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this schedule.")
	}

	return sched, nil
}

// ListSchedules lists availability. Staff may filter by any doctor;
// everyone else is scoped to their own slots.
func (s *Service) ListSchedules(ctx context.Context, actor *types.UserClaims, doctorID string) ([]*types.Schedule, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if !actor.Role.IsStaff() {
		doctorID = actor.UserID
	}

	return s.store.ListSchedules(doctorID)
}

// UpdateSchedule applies a partial update to a schedule
func (s *Service) UpdateSchedule(ctx context.Context, actor *types.UserClaims, id string, updates *types.ScheduleUpdates) (*types.Schedule, error) {
	sched, err := s.store.GetScheduleByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpdate, sched) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to update this schedule.")
	}

	if updates.Weekday != nil && (*updates.Weekday < 0 || *updates.Weekday > 6) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "weekday must be between 0 and 6.")
	}
	if updates.StartTime != nil {
		if err := validateTimeOfDay(*updates.StartTime); err != nil {
			return nil, err
		}
	}
	if updates.EndTime != nil {
		if err := validateTimeOfDay(*updates.EndTime); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateSchedule(id, updates); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "schedule.update", id, "")
	return s.store.GetScheduleByID(id)
}

// DeleteSchedule removes a schedule slot
func (s *Service) DeleteSchedule(ctx context.Context, actor *types.UserClaims, id string) error {
	sched, err := s.store.GetScheduleByID(id)
	if err != nil {
		return err
	}

	if !s.policy.CanAccess(actor, policy.ActionDelete, sched) {
		return types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to delete this schedule.")
	}

	if err := s.store.DeleteSchedule(id); err != nil {
		return err
	}

	s.recordActivity(ctx, "schedule.delete", id, "")
	return nil
}

// validateTimeOfDay checks an HH:MM wall-clock string
func validateTimeOfDay(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, fmt.Sprintf("Invalid time of day %q, expected HH:MM.", value))
	}
	return nil
}

func (s *Service) recordActivity(ctx context.Context, action, target, details string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, action, target, details); err != nil {
		s.logger.WithError(err).Warn("Failed to record audit entry")
	}
}

// notifyParties informs both the doctor and the patient about a lifecycle
// change. Notification failures are logged and swallowed.
func (s *Service) notifyParties(ctx context.Context, apt *types.Appointment, title, content string) {
	if s.activity == nil {
		return
	}
	for _, recipient := range []string{apt.PatientID, apt.DoctorID} {
		if err := s.activity.Notify(ctx, recipient, types.NotificationAppointment, title, content); err != nil {
			s.logger.WithError(err).WithField("recipient", recipient).Warn("Failed to deliver notification")
		}
	}
}
