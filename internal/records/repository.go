package records

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Repository persists medical records and prescriptions
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new records repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const recordColumns = `id, patient_id, doctor_id, visit_reason, diagnosis, status,
	   is_sensitive, created_at, updated_at`

// CreateRecord inserts a new medical record
func (r *Repository) CreateRecord(record *types.MedicalRecord) error {
	query := `
		INSERT INTO medical_records (
			id, patient_id, doctor_id, visit_reason, diagnosis, status,
			is_sensitive, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		record.ID,
		record.PatientID,
		record.DoctorID,
		record.VisitReason,
		record.Diagnosis,
		record.Status,
		record.IsSensitive,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create medical record")
		return fmt.Errorf("failed to create medical record: %w", err)
	}

	return nil
}

// GetRecordByID retrieves a medical record by ID
func (r *Repository) GetRecordByID(id string) (*types.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE id = $1`

	record := &types.MedicalRecord{}
	err := r.db.QueryRow(query, id).Scan(
		&record.ID,
		&record.PatientID,
		&record.DoctorID,
		&record.VisitReason,
		&record.Diagnosis,
		&record.Status,
		&record.IsSensitive,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Medical record not found.")
		}
		r.logger.WithError(err).WithField("record_id", id).Error("Failed to get medical record")
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}

	return record, nil
}

// ListRecords retrieves records, optionally scoped to a doctor or patient
func (r *Repository) ListRecords(doctorID, patientID string) ([]*types.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if doctorID != "" {
		query += fmt.Sprintf(" AND doctor_id = $%d", argIndex)
		args = append(args, doctorID)
		argIndex++
	}

	if patientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argIndex)
		args = append(args, patientID)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list medical records")
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	defer rows.Close()

	var records []*types.MedicalRecord
	for rows.Next() {
		record := &types.MedicalRecord{}
		err := rows.Scan(
			&record.ID,
			&record.PatientID,
			&record.DoctorID,
			&record.VisitReason,
			&record.Diagnosis,
			&record.Status,
			&record.IsSensitive,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medical record: %w", err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medical records: %w", err)
	}

	return records, nil
}

// UpdateRecord applies a partial update to a medical record
func (r *Repository) UpdateRecord(id string, updates *types.RecordUpdates) error {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.VisitReason != nil {
		setParts = append(setParts, fmt.Sprintf("visit_reason = $%d", argIndex))
		args = append(args, *updates.VisitReason)
		argIndex++
	}

	if updates.Diagnosis != nil {
		setParts = append(setParts, fmt.Sprintf("diagnosis = $%d", argIndex))
		args = append(args, *updates.Diagnosis)
		argIndex++
	}

	if updates.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *updates.Status)
		argIndex++
	}

	if updates.IsSensitive != nil {
		setParts = append(setParts, fmt.Sprintf("is_sensitive = $%d", argIndex))
		args = append(args, *updates.IsSensitive)
		argIndex++
	}

	if len(setParts) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided.")
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	query := fmt.Sprintf("UPDATE medical_records SET %s WHERE id = $%d", strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.WithError(err).WithField("record_id", id).Error("Failed to update medical record")
		return fmt.Errorf("failed to update medical record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Medical record not found.")
	}

	return nil
}

// DeleteRecord removes a medical record and its attachments via cascade
func (r *Repository) DeleteRecord(id string) error {
	result, err := r.db.Exec(`DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("record_id", id).Error("Failed to delete medical record")
		return fmt.Errorf("failed to delete medical record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Medical record not found.")
	}

	return nil
}

// CreatePrescription inserts a prescription under a record
func (r *Repository) CreatePrescription(p *types.Prescription) error {
	query := `
		INSERT INTO prescriptions (
			id, record_id, medication, dosage, instructions, start_date,
			end_date, renewable, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		p.ID,
		p.RecordID,
		p.Medication,
		p.Dosage,
		p.Instructions,
		p.StartDate,
		p.EndDate,
		p.Renewable,
		p.Status,
		p.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create prescription")
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	return nil
}

// GetPrescriptionByID retrieves a prescription by ID
func (r *Repository) GetPrescriptionByID(id string) (*types.Prescription, error) {
	query := `
		SELECT id, record_id, medication, dosage, instructions, start_date,
		       end_date, renewable, status, created_at
		FROM prescriptions
		WHERE id = $1`

	p := &types.Prescription{}
	err := r.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.RecordID,
		&p.Medication,
		&p.Dosage,
		&p.Instructions,
		&p.StartDate,
		&p.EndDate,
		&p.Renewable,
		&p.Status,
		&p.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Prescription not found.")
		}
		r.logger.WithError(err).WithField("prescription_id", id).Error("Failed to get prescription")
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}

	return p, nil
}

// ListPrescriptionsByRecord retrieves all prescriptions under a record
func (r *Repository) ListPrescriptionsByRecord(recordID string) ([]*types.Prescription, error) {
	query := `
		SELECT id, record_id, medication, dosage, instructions, start_date,
		       end_date, renewable, status, created_at
		FROM prescriptions
		WHERE record_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, recordID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list prescriptions")
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	defer rows.Close()

	var prescriptions []*types.Prescription
	for rows.Next() {
		p := &types.Prescription{}
		err := rows.Scan(
			&p.ID,
			&p.RecordID,
			&p.Medication,
			&p.Dosage,
			&p.Instructions,
			&p.StartDate,
			&p.EndDate,
			&p.Renewable,
			&p.Status,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		prescriptions = append(prescriptions, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescriptions: %w", err)
	}

	return prescriptions, nil
}

// DeletePrescription removes a prescription
func (r *Repository) DeletePrescription(id string) error {
	result, err := r.db.Exec(`DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("prescription_id", id).Error("Failed to delete prescription")
		return fmt.Errorf("failed to delete prescription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Prescription not found.")
	}

	return nil
}
