package files

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pooriya-cloudS/mediqe/pkg/config"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/policy"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateFile(f *types.MedicalFile) error {
	args := m.Called(f)
	return args.Error(0)
}

func (m *MockStore) GetFileByID(id string) (*types.MedicalFile, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MedicalFile), args.Error(1)
}

func (m *MockStore) ListFilesByRecord(recordID string) ([]*types.MedicalFile, error) {
	args := m.Called(recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.MedicalFile), args.Error(1)
}

func (m *MockStore) DeleteFile(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockRecords is a mock implementation of RecordGetter
type MockRecords struct {
	mock.Mock
}

func (m *MockRecords) GetRecordByID(id string) (*types.MedicalRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MedicalRecord), args.Error(1)
}

// MockBlobs is a mock implementation of BlobStore
type MockBlobs struct {
	mock.Mock
}

func (m *MockBlobs) Save(ext string, content io.Reader) (string, error) {
	args := m.Called(ext, content)
	return args.String(0), args.Error(1)
}

func (m *MockBlobs) Open(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobs) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		UploadDir:         "/tmp/test-uploads",
		MaxUploadBytes:    5 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "jpg", "jpeg", "png"},
	}
}

func newTestService(store *MockStore, records *MockRecords, blobs *MockBlobs) *Service {
	return NewService(store, records, blobs, policy.NewEngine(), nil, testStorageConfig(), logger.New("error"))
}

func uploadRequest(recordID, fileName string, size int64) *UploadRequest {
	return &UploadRequest{
		RecordID: recordID,
		FileName: fileName,
		Size:     size,
		Content:  bytes.NewReader([]byte("content")),
	}
}

func TestUpload_RejectsDisallowedExtension(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.Upload(context.Background(), actor, uploadRequest("rec-1", "report.exe", 100))

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
	blobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.Upload(context.Background(), actor, uploadRequest("rec-1", "scan.png", 6*1024*1024))

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestUpload_StaffCannotUpload(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	records.On("GetRecordByID", "rec-1").Return(record, nil)

	admin := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}
	_, err := service.Upload(context.Background(), admin, uploadRequest("rec-1", "scan.png", 100))

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
	blobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpload_StampsUploaderFromCaller(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	records.On("GetRecordByID", "rec-1").Return(record, nil)
	blobs.On("Save", "png", mock.Anything).Return("stored-name.png", nil)

	var captured *types.MedicalFile
	store.On("CreateFile", mock.AnythingOfType("*types.MedicalFile")).
		Run(func(args mock.Arguments) {
			captured = args.Get(0).(*types.MedicalFile)
		}).
		Return(nil)

	patient := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	file, err := service.Upload(context.Background(), patient, uploadRequest("rec-1", "Scan.PNG", 100))

	require.NoError(t, err)
	assert.Equal(t, "pat-1", captured.UploaderID)
	assert.Equal(t, "png", captured.FileType)
	assert.Equal(t, "stored-name.png", captured.FilePath)
	assert.NotEmpty(t, file.ID)
}

func TestUpload_RemovesBlobWhenMetadataInsertFails(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	records.On("GetRecordByID", "rec-1").Return(record, nil)
	blobs.On("Save", "pdf", mock.Anything).Return("stored.pdf", nil)
	store.On("CreateFile", mock.Anything).Return(assert.AnError)
	blobs.On("Remove", "stored.pdf").Return(nil)

	doctor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	_, err := service.Upload(context.Background(), doctor, uploadRequest("rec-1", "report.pdf", 100))

	assert.Error(t, err)
	blobs.AssertCalled(t, "Remove", "stored.pdf")
}

func TestDownload_ThreePartyRule(t *testing.T) {
	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	file := &types.MedicalFile{ID: "file-1", RecordID: "rec-1", UploaderID: "rec-staff", FilePath: "stored.png", FileName: "scan.png"}

	testCases := []struct {
		name    string
		actor   *types.UserClaims
		allowed bool
	}{
		{"record patient", &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}, true},
		{"record doctor", &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}, true},
		{"uploader", &types.UserClaims{UserID: "rec-staff", Role: types.RoleReceptionist}, true},
		{"unrelated admin", &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}, false},
		{"unrelated patient", &types.UserClaims{UserID: "pat-2", Role: types.RolePatient}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &MockStore{}
			records := &MockRecords{}
			blobs := &MockBlobs{}
			service := newTestService(store, records, blobs)

			store.On("GetFileByID", "file-1").Return(file, nil)
			records.On("GetRecordByID", "rec-1").Return(record, nil)
			blobs.On("Open", "stored.png").Return(io.NopCloser(bytes.NewReader([]byte("bytes"))), nil).Maybe()

			_, content, err := service.Download(context.Background(), tc.actor, "file-1")

			if tc.allowed {
				require.NoError(t, err)
				content.Close()
			} else {
				ce, ok := types.AsClinicError(err)
				require.True(t, ok)
				assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
			}
		})
	}
}

func TestDownload_MissingBytesIsNotFound(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	file := &types.MedicalFile{ID: "file-1", RecordID: "rec-1", UploaderID: "pat-1", FilePath: "gone.png"}
	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}

	store.On("GetFileByID", "file-1").Return(file, nil)
	records.On("GetRecordByID", "rec-1").Return(record, nil)
	blobs.On("Open", "gone.png").Return(nil, assert.AnError)

	patient := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, _, err := service.Download(context.Background(), patient, "file-1")

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeNotFound, ce.Type)
}

func TestDeleteFile_OnlyUploaderOrStaff(t *testing.T) {
	store := &MockStore{}
	records := &MockRecords{}
	blobs := &MockBlobs{}
	service := newTestService(store, records, blobs)

	file := &types.MedicalFile{ID: "file-1", RecordID: "rec-1", UploaderID: "pat-1", FilePath: "stored.png"}
	store.On("GetFileByID", "file-1").Return(file, nil)

	doctor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	err := service.DeleteFile(context.Background(), doctor, "file-1")

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
	store.AssertNotCalled(t, "DeleteFile", mock.Anything)
}
