package types

import "time"

// RecordStatus represents medical record status values
type RecordStatus string

const (
	RecordOpen     RecordStatus = "Open"
	RecordClosed   RecordStatus = "Closed"
	RecordArchived RecordStatus = "Archived"
)

// IsValid reports whether the status is a known member of the record status enum
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordOpen, RecordClosed, RecordArchived:
		return true
	}
	return false
}

// MedicalRecord represents a clinical case linking one patient and one doctor
type MedicalRecord struct {
	ID          string       `json:"id" db:"id"`
	PatientID   string       `json:"patient_id" db:"patient_id"`
	DoctorID    string       `json:"doctor_id" db:"doctor_id"`
	VisitReason string       `json:"visit_reason" db:"visit_reason"`
	Diagnosis   string       `json:"diagnosis" db:"diagnosis"`
	Status      RecordStatus `json:"status" db:"status"`
	IsSensitive bool         `json:"is_sensitive" db:"is_sensitive"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// AccessParticipants returns the parties with ownership over the record
func (r *MedicalRecord) AccessParticipants() (doctorID, patientID string) {
	return r.DoctorID, r.PatientID
}

// Prescription represents a medication order attached to a medical record
type Prescription struct {
	ID           string    `json:"id" db:"id"`
	RecordID     string    `json:"record_id" db:"record_id"`
	Medication   string    `json:"medication" db:"medication"`
	Dosage       string    `json:"dosage" db:"dosage"`
	Instructions string    `json:"instructions" db:"instructions"`
	StartDate    time.Time `json:"start_date" db:"start_date"`
	EndDate      time.Time `json:"end_date" db:"end_date"`
	Renewable    bool      `json:"renewable" db:"renewable"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MedicalFile represents an uploaded attachment bound to a medical record
type MedicalFile struct {
	ID          string    `json:"id" db:"id"`
	RecordID    string    `json:"record_id" db:"record_id"`
	UploaderID  string    `json:"uploader_id" db:"uploader_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	FilePath    string    `json:"-" db:"file_path"`
	FileType    string    `json:"file_type" db:"file_type"`
	Description string    `json:"description" db:"description"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	IsPrivate   bool      `json:"is_private" db:"is_private"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// RecordUpdates represents a partial update to a medical record
type RecordUpdates struct {
	VisitReason *string       `json:"visit_reason,omitempty"`
	Diagnosis   *string       `json:"diagnosis,omitempty"`
	Status      *RecordStatus `json:"status,omitempty"`
	IsSensitive *bool         `json:"is_sensitive,omitempty"`
}
