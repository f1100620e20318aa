// Package records manages medical records and the prescriptions attached
// to them.
package records

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
	CreateRecord(record *types.MedicalRecord) error
	GetRecordByID(id string) (*types.MedicalRecord, error)
	ListRecords(doctorID, patientID string) ([]*types.MedicalRecord, error)
	UpdateRecord(id string, updates *types.RecordUpdates) error
	DeleteRecord(id string) error

	CreatePrescription(p *types.Prescription) error
	GetPrescriptionByID(id string) (*types.Prescription, error)
	ListPrescriptionsByRecord(recordID string) ([]*types.Prescription, error)
	DeletePrescription(id string) error
}

// ActivityRecorder receives audit entries for record mutations
type ActivityRecorder interface {
	Record(ctx context.Context, action, target, details string) error
}

// Service implements medical record business logic
type Service struct {
	store    Store
	policy   *policy.Engine
	activity ActivityRecorder
	logger   *logger.Logger
}

// NewService creates a new records service
func NewService(store Store, engine *policy.Engine, activity ActivityRecorder, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		policy:   engine,
		activity: activity,
		logger:   log,
	}
}

// CreateRecord opens a new medical record. Doctors may only open records
// where they are the treating doctor; staff may open them for any pair.
func (s *Service) CreateRecord(ctx context.Context, actor *types.UserClaims, record *types.MedicalRecord) (*types.MedicalRecord, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if record.PatientID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "patient_id is required.")
	}

	if record.DoctorID == "" {
		record.DoctorID = actor.UserID
	}

	switch {
	case actor.Role.IsStaff():
		// staff may open records for any doctor/patient pair
	case actor.Role == types.RoleDoctor:
		if record.DoctorID != actor.UserID {
			return nil, types.NewPermissionError(types.ErrCodeForbidden, "Doctors may only open records they treat.")
		}
	default:
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "Only doctors and staff may open medical records.")
	}

	if record.Status == "" {
		record.Status = types.RecordOpen
	}
	if !record.Status.IsValid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidStatus, fmt.Sprintf("Invalid record status %q.", record.Status))
	}

	record.ID = uuid.New().String()
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.store.CreateRecord(record); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "record.create", record.ID, fmt.Sprintf("patient=%s doctor=%s", record.PatientID, record.DoctorID))

	s.logger.WithFields(map[string]interface{}{
		"record_id":  record.ID,
		"doctor_id":  record.DoctorID,
		"patient_id": record.PatientID,
	}).Info("Medical record created")

	return record, nil
}

// GetRecord retrieves a record if the caller may see it. Sensitive records
// follow the same ownership rules as any other record.
func (s *Service) GetRecord(ctx context.Context, actor *types.UserClaims, id string) (*types.MedicalRecord, error) {
	record, err := s.store.GetRecordByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionView, record) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this record.")
	}

	return record, nil
}

// ListRecords returns the records visible to the caller
func (s *Service) ListRecords(ctx context.Context, actor *types.UserClaims) ([]*types.MedicalRecord, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	switch {
	case actor.Role.IsStaff():
		return s.store.ListRecords("", "")
	case actor.Role == types.RoleDoctor:
		return s.store.ListRecords(actor.UserID, "")
	default:
		return s.store.ListRecords("", actor.UserID)
	}
}

// UpdateRecord applies a partial update to a record
func (s *Service) UpdateRecord(ctx context.Context, actor *types.UserClaims, id string, updates *types.RecordUpdates) (*types.MedicalRecord, error) {
	record, err := s.store.GetRecordByID(id)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpdate, record) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to update this record.")
	}

	if updates.Status != nil && !updates.Status.IsValid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidStatus, fmt.Sprintf("Invalid record status %q.", *updates.Status))
	}

	if err := s.store.UpdateRecord(id, updates); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "record.update", id, "")
	return s.store.GetRecordByID(id)
}

// DeleteRecord removes a record and everything attached to it
func (s *Service) DeleteRecord(ctx context.Context, actor *types.UserClaims, id string) error {
	record, err := s.store.GetRecordByID(id)
	if err != nil {
		return err
	}

	if !s.policy.CanAccess(actor, policy.ActionDelete, record) {
		return types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to delete this record.")
	}

	if err := s.store.DeleteRecord(id); err != nil {
		return err
	}

	s.recordActivity(ctx, "record.delete", id, "")
	return nil
}

// CreatePrescription issues a prescription under a record. Prescribing is a
// doctor act: only the record's doctor or staff may do it.
func (s *Service) CreatePrescription(ctx context.Context, actor *types.UserClaims, p *types.Prescription) (*types.Prescription, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if p.RecordID == "" || p.Medication == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "record_id and medication are required.")
	}

	if !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "end_date must not be before start_date.")
	}

	record, err := s.store.GetRecordByID(p.RecordID)
	if err != nil {
		return nil, err
	}

	if !actor.Role.IsStaff() && actor.UserID != record.DoctorID {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "Only the treating doctor may prescribe on this record.")
	}

	p.ID = uuid.New().String()
	if p.Status == "" {
		p.Status = "Active"
	}
	p.CreatedAt = time.Now()

	if err := s.store.CreatePrescription(p); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "prescription.create", p.ID, fmt.Sprintf("record=%s medication=%s", p.RecordID, p.Medication))
	return p, nil
}

// GetPrescription retrieves a prescription with its parent record's rules
func (s *Service) GetPrescription(ctx context.Context, actor *types.UserClaims, id string) (*types.Prescription, error) {
	p, err := s.store.GetPrescriptionByID(id)
	if err != nil {
		return nil, err
	}

	record, err := s.store.GetRecordByID(p.RecordID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionView, record) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this prescription.")
	}

	return p, nil
}

// ListPrescriptions lists the prescriptions under a record the caller may
// see.
func (s *Service) ListPrescriptions(ctx context.Context, actor *types.UserClaims, recordID string) ([]*types.Prescription, error) {
	record, err := s.store.GetRecordByID(recordID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionView, record) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this record.")
	}

	return s.store.ListPrescriptionsByRecord(recordID)
}

// DeletePrescription removes a prescription. Same rule as prescribing.
func (s *Service) DeletePrescription(ctx context.Context, actor *types.UserClaims, id string) error {
	if actor == nil {
		return types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	p, err := s.store.GetPrescriptionByID(id)
	if err != nil {
		return err
	}

	record, err := s.store.GetRecordByID(p.RecordID)
	if err != nil {
		return err
	}

	if !actor.Role.IsStaff() && actor.UserID != record.DoctorID {
		return types.NewPermissionError(types.ErrCodeForbidden, "Only the treating doctor may remove prescriptions.")
	}

	if err := s.store.DeletePrescription(id); err != nil {
		return err
	}

	s.recordActivity(ctx, "prescription.delete", id, "")
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
