package files

import (
	"database/sql"
	"fmt"

	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Repository persists medical file metadata
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new files repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const fileColumns = `id, record_id, uploader_id, file_name, file_path, file_type,
	   description, size_bytes, is_private, uploaded_at`

// CreateFile inserts file metadata
func (r *Repository) CreateFile(f *types.MedicalFile) error {
	query := `
		INSERT INTO medical_files (
			id, record_id, uploader_id, file_name, file_path, file_type,
			description, size_bytes, is_private, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		f.ID,
		f.RecordID,
		f.UploaderID,
		f.FileName,
		f.FilePath,
		f.FileType,
		f.Description,
		f.SizeBytes,
		f.IsPrivate,
		f.UploadedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create medical file")
		return fmt.Errorf("failed to create medical file: %w", err)
	}

	return nil
}

// GetFileByID retrieves file metadata by ID
func (r *Repository) GetFileByID(id string) (*types.MedicalFile, error) {
	query := `SELECT ` + fileColumns + ` FROM medical_files WHERE id = $1`

	f := &types.MedicalFile{}
	err := r.db.QueryRow(query, id).Scan(
		&f.ID,
		&f.RecordID,
		&f.UploaderID,
		&f.FileName,
		&f.FilePath,
		&f.FileType,
		&f.Description,
		&f.SizeBytes,
		&f.IsPrivate,
		&f.UploadedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "File not found.")
		}
		r.logger.WithError(err).WithField("file_id", id).Error("Failed to get medical file")
		return nil, fmt.Errorf("failed to get medical file: %w", err)
	}

	return f, nil
}

// ListFilesByRecord retrieves all files attached to a record
func (r *Repository) ListFilesByRecord(recordID string) ([]*types.MedicalFile, error) {
	query := `SELECT ` + fileColumns + ` FROM medical_files WHERE record_id = $1 ORDER BY uploaded_at DESC`

	rows, err := r.db.Query(query, recordID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list medical files")
		return nil, fmt.Errorf("failed to list medical files: %w", err)
	}
	defer rows.Close()

	var files []*types.MedicalFile
	for rows.Next() {
		f := &types.MedicalFile{}
		err := rows.Scan(
			&f.ID,
			&f.RecordID,
			&f.UploaderID,
			&f.FileName,
			&f.FilePath,
			&f.FileType,
			&f.Description,
			&f.SizeBytes,
			&f.IsPrivate,
			&f.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medical file: %w", err)
		}
		files = append(files, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medical files: %w", err)
	}

	return files, nil
}

// DeleteFile removes file metadata
func (r *Repository) DeleteFile(id string) error {
	result, err := r.db.Exec(`DELETE FROM medical_files WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("file_id", id).Error("Failed to delete medical file")
		return fmt.Errorf("failed to delete medical file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "File not found.")
	}

	return nil
}
