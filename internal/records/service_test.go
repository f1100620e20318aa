package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/policy"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateRecord(record *types.MedicalRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockStore) GetRecordByID(id string) (*types.MedicalRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MedicalRecord), args.Error(1)
}

func (m *MockStore) ListRecords(doctorID, patientID string) ([]*types.MedicalRecord, error) {
	args := m.Called(doctorID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.MedicalRecord), args.Error(1)
}

func (m *MockStore) UpdateRecord(id string, updates *types.RecordUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockStore) DeleteRecord(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStore) CreatePrescription(p *types.Prescription) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockStore) GetPrescriptionByID(id string) (*types.Prescription, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Prescription), args.Error(1)
}

func (m *MockStore) ListPrescriptionsByRecord(recordID string) ([]*types.Prescription, error) {
	args := m.Called(recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Prescription), args.Error(1)
}

func (m *MockStore) DeletePrescription(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func newTestService(store *MockStore) *Service {
	return NewService(store, policy.NewEngine(), nil, logger.New("error"))
}

func TestCreateRecord_PatientCannotOpen(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.CreateRecord(context.Background(), actor, &types.MedicalRecord{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
	})

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
	store.AssertNotCalled(t, "CreateRecord", mock.Anything)
}

func TestCreateRecord_DoctorDefaultsToSelf(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	var captured *types.MedicalRecord
	store.On("CreateRecord", mock.AnythingOfType("*types.MedicalRecord")).
		Run(func(args mock.Arguments) {
			captured = args.Get(0).(*types.MedicalRecord)
		}).
		Return(nil)

	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	record, err := service.CreateRecord(context.Background(), actor, &types.MedicalRecord{
		PatientID:   "pat-1",
		VisitReason: "Checkup",
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-1", captured.DoctorID)
	assert.Equal(t, types.RecordOpen, captured.Status)
	assert.NotEmpty(t, record.ID)
}

func TestCreateRecord_DoctorCannotImpersonate(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	_, err := service.CreateRecord(context.Background(), actor, &types.MedicalRecord{
		PatientID: "pat-1",
		DoctorID:  "doc-2",
	})

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
}

func TestGetRecord_SensitiveFollowsSameOwnership(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	record := &types.MedicalRecord{
		ID:          "rec-1",
		DoctorID:    "doc-1",
		PatientID:   "pat-1",
		IsSensitive: true,
	}
	store.On("GetRecordByID", "rec-1").Return(record, nil)

	// the record's patient still sees their own sensitive record
	patient := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	got, err := service.GetRecord(context.Background(), patient, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", got.ID)

	// an unrelated doctor does not
	stranger := &types.UserClaims{UserID: "doc-2", Role: types.RoleDoctor}
	_, err = service.GetRecord(context.Background(), stranger, "rec-1")
	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
}

func TestListRecords_ScopesByRole(t *testing.T) {
	testCases := []struct {
		name        string
		actor       *types.UserClaims
		wantDoctor  string
		wantPatient string
	}{
		{"staff sees all", &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}, "", ""},
		{"doctor sees own", &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}, "doc-1", ""},
		{"patient sees own", &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}, "", "pat-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &MockStore{}
			service := newTestService(store)

			store.On("ListRecords", tc.wantDoctor, tc.wantPatient).Return([]*types.MedicalRecord{}, nil)

			_, err := service.ListRecords(context.Background(), tc.actor)
			assert.NoError(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestUpdateRecord_InvalidStatus(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	store.On("GetRecordByID", "rec-1").Return(record, nil)

	bad := types.RecordStatus("Paused")
	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	_, err := service.UpdateRecord(context.Background(), actor, "rec-1", &types.RecordUpdates{Status: &bad})

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeInvalidStatus, ce.Code)
	store.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything)
}

func TestCreatePrescription_OnlyTreatingDoctor(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	store.On("GetRecordByID", "rec-1").Return(record, nil)

	other := &types.UserClaims{UserID: "doc-2", Role: types.RoleDoctor}
	_, err := service.CreatePrescription(context.Background(), other, &types.Prescription{
		RecordID:   "rec-1",
		Medication: "Amoxicillin",
		StartDate:  time.Now(),
	})

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
	store.AssertNotCalled(t, "CreatePrescription", mock.Anything)
}

func TestCreatePrescription_DefaultsStatusActive(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	store.On("GetRecordByID", "rec-1").Return(record, nil)

	var captured *types.Prescription
	store.On("CreatePrescription", mock.AnythingOfType("*types.Prescription")).
		Run(func(args mock.Arguments) {
			captured = args.Get(0).(*types.Prescription)
		}).
		Return(nil)

	doctor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	start := time.Now()
	p, err := service.CreatePrescription(context.Background(), doctor, &types.Prescription{
		RecordID:   "rec-1",
		Medication: "Amoxicillin",
		StartDate:  start,
		EndDate:    start.Add(7 * 24 * time.Hour),
	})

	require.NoError(t, err)
	assert.Equal(t, "Active", captured.Status)
	assert.NotEmpty(t, p.ID)
}

func TestCreatePrescription_EndBeforeStart(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	doctor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	start := time.Now()
	_, err := service.CreatePrescription(context.Background(), doctor, &types.Prescription{
		RecordID:   "rec-1",
		Medication: "Amoxicillin",
		StartDate:  start,
		EndDate:    start.Add(-24 * time.Hour),
	})

	ce, ok := types.AsClinicError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestListPrescriptions_PatientOfRecordAllowed(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store)

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}
	store.On("GetRecordByID", "rec-1").Return(record, nil)
	store.On("ListPrescriptionsByRecord", "rec-1").Return([]*types.Prescription{{ID: "pre-1"}}, nil)

	patient := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	prescriptions, err := service.ListPrescriptions(context.Background(), patient, "rec-1")

	require.NoError(t, err)
	assert.Len(t, prescriptions, 1)
}
