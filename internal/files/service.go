// Package files handles attachments bound to medical records: validated
// uploads to disk and authorized downloads.
package files

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pooriya-cloudS/mediqe/pkg/config"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/policy"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Store is the metadata persistence surface the service depends on
type Store interface {
	CreateFile(f *types.MedicalFile) error
	GetFileByID(id string) (*types.MedicalFile, error)
	ListFilesByRecord(recordID string) ([]*types.MedicalFile, error)
	DeleteFile(id string) error
}

// RecordGetter resolves the parent medical record for access checks
type RecordGetter interface {
	GetRecordByID(id string) (*types.MedicalRecord, error)
}

// ActivityRecorder receives audit entries for file operations
type ActivityRecorder interface {
	Record(ctx context.Context, action, target, details string) error
}

// UploadRequest describes an incoming attachment
type UploadRequest struct {
	RecordID    string
	FileName    string
	Size        int64
	Description string
	IsPrivate   bool
	Content     io.Reader
}

// Service implements attachment business logic
type Service struct {
	store    Store
	records  RecordGetter
	blobs    BlobStore
	policy   *policy.Engine
	activity ActivityRecorder
	config   *config.StorageConfig
	logger   *logger.Logger
}

// NewService creates a new files service
func NewService(store Store, records RecordGetter, blobs BlobStore, engine *policy.Engine, activity ActivityRecorder, cfg *config.StorageConfig, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		records:  records,
		blobs:    blobs,
		policy:   engine,
		activity: activity,
		config:   cfg,
		logger:   log,
	}
}

// Upload stores an attachment on a record. Only the record's patient or
// doctor may upload, the extension must be on the allow list and the size
// must fit under the configured ceiling. The uploader is always the caller.
func (s *Service) Upload(ctx context.Context, actor *types.UserClaims, req *UploadRequest) (*types.MedicalFile, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	if req.RecordID == "" || req.FileName == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "record and file are required.")
	}

	ext := normalizedExtension(req.FileName)
	if !s.extensionAllowed(ext) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("File type %q is not allowed. Allowed types: %s.", ext, strings.Join(s.config.AllowedExtensions, ", ")))
	}

	if req.Size > s.config.MaxUploadBytes {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput,
			fmt.Sprintf("File exceeds the maximum size of %d bytes.", s.config.MaxUploadBytes))
	}

	record, err := s.records.GetRecordByID(req.RecordID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionUpload, record) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "Only the record's patient or doctor may upload files.")
	}

	path, err := s.blobs.Save(ext, io.LimitReader(req.Content, s.config.MaxUploadBytes))
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "Failed to store file.", err)
	}

	file := &types.MedicalFile{
		ID:          uuid.New().String(),
		RecordID:    req.RecordID,
		UploaderID:  actor.UserID,
		FileName:    filepath.Base(req.FileName),
		FilePath:    path,
		FileType:    ext,
		Description: req.Description,
		SizeBytes:   req.Size,
		IsPrivate:   req.IsPrivate,
		UploadedAt:  time.Now(),
	}

	if err := s.store.CreateFile(file); err != nil {
		if rmErr := s.blobs.Remove(path); rmErr != nil {
			s.logger.WithError(rmErr).Warn("Failed to remove orphaned attachment")
		}
		return nil, err
	}

	s.recordActivity(ctx, "file.upload", file.ID, fmt.Sprintf("record=%s name=%s size=%d", file.RecordID, file.FileName, file.SizeBytes))

	s.logger.WithFields(map[string]interface{}{
		"file_id":   file.ID,
		"record_id": file.RecordID,
		"uploader":  file.UploaderID,
	}).Info("File uploaded")

	return file, nil
}

// Download opens an attachment for the caller. Exactly three parties may
// download: the record's patient, the record's doctor and the uploader.
func (s *Service) Download(ctx context.Context, actor *types.UserClaims, fileID string) (*types.MedicalFile, io.ReadCloser, error) {
	if actor == nil {
		return nil, nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	file, err := s.store.GetFileByID(fileID)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.records.GetRecordByID(file.RecordID)
	if err != nil {
		return nil, nil, err
	}

	allowed := actor.UserID == record.PatientID ||
		actor.UserID == record.DoctorID ||
		actor.UserID == file.UploaderID
	if !allowed {
		s.logger.Security("file_download_denied", actor.UserID, map[string]interface{}{"file_id": fileID})
		return nil, nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to download this file.")
	}

	content, err := s.blobs.Open(file.FilePath)
	if err != nil {
		return nil, nil, types.NewNotFoundError(types.ErrCodeNotFound, "File content is no longer available.")
	}

	s.recordActivity(ctx, "file.download", file.ID, "")
	return file, content, nil
}

// GetFile returns attachment metadata under the same three-party rule as
// Download, without touching the stored bytes.
func (s *Service) GetFile(ctx context.Context, actor *types.UserClaims, fileID string) (*types.MedicalFile, error) {
	if actor == nil {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	file, err := s.store.GetFileByID(fileID)
	if err != nil {
		return nil, err
	}

	record, err := s.records.GetRecordByID(file.RecordID)
	if err != nil {
		return nil, err
	}

	allowed := actor.UserID == record.PatientID ||
		actor.UserID == record.DoctorID ||
		actor.UserID == file.UploaderID
	if !allowed {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this file.")
	}

	return file, nil
}

// ListFiles lists attachments on a record the caller may view
func (s *Service) ListFiles(ctx context.Context, actor *types.UserClaims, recordID string) ([]*types.MedicalFile, error) {
	record, err := s.records.GetRecordByID(recordID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanAccess(actor, policy.ActionView, record) {
		return nil, types.NewPermissionError(types.ErrCodeForbidden, "You do not have permission to view this record.")
	}

	return s.store.ListFilesByRecord(recordID)
}

// DeleteFile removes an attachment. Only the uploader or staff may delete.
func (s *Service) DeleteFile(ctx context.Context, actor *types.UserClaims, fileID string) error {
	if actor == nil {
		return types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authentication required.")
	}

	file, err := s.store.GetFileByID(fileID)
	if err != nil {
		return err
	}

	if actor.UserID != file.UploaderID && !actor.Role.IsStaff() {
		return types.NewPermissionError(types.ErrCodeForbidden, "Only the uploader may delete this file.")
	}

	if err := s.store.DeleteFile(fileID); err != nil {
		return err
	}

	if err := s.blobs.Remove(file.FilePath); err != nil {
		s.logger.WithError(err).WithField("file_id", fileID).Warn("Failed to remove attachment bytes")
	}

	s.recordActivity(ctx, "file.delete", fileID, "")
	return nil
}

func (s *Service) extensionAllowed(ext string) bool {
	for _, allowed := range s.config.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// normalizedExtension returns the lowercased extension without the dot
func normalizedExtension(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

func (s *Service) recordActivity(ctx context.Context, action, target, details string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, action, target, details); err != nil {
		s.logger.WithError(err).Warn("Failed to record audit entry")
	}
}
