package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/policy"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateAppointment(apt *types.Appointment) error {
	args := m.Called(apt)
	return args.Error(0)
}

func (m *MockStore) GetAppointmentByID(id string) (*types.Appointment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockStore) ListAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockStore) SetAppointmentStatus(id string, status types.AppointmentStatus, cancelledAt *time.Time) error {
	args := m.Called(id, status, cancelledAt)
	return args.Error(0)
}

func (m *MockStore) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockStore) RescheduleAppointment(id string, appointmentTime time.Time, scheduleID string) error {
	args := m.Called(id, appointmentTime, scheduleID)
	return args.Error(0)
}

func (m *MockStore) DeleteAppointment(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStore) CreateSchedule(s *types.Schedule) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockStore) GetScheduleByID(id string) (*types.Schedule, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Schedule), args.Error(1)
}

func (m *MockStore) ListSchedules(doctorID string) ([]*types.Schedule, error) {
	args := m.Called(doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Schedule), args.Error(1)
}

func (m *MockStore) UpdateSchedule(id string, updates *types.ScheduleUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockStore) DeleteSchedule(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockActivity is a mock implementation of ActivityRecorder
type MockActivity struct {
	mock.Mock
}

func (m *MockActivity) Record(ctx context.Context, action, target, details string) error {
	args := m.Called(ctx, action, target, details)
	return args.Error(0)
}

func (m *MockActivity) Notify(ctx context.Context, recipientID string, nType types.NotificationType, title, content string) error {
	args := m.Called(ctx, recipientID, nType, title, content)
	return args.Error(0)
}

func newTestService(store *MockStore, activity *MockActivity) *Service {
	return NewService(store, policy.NewEngine(), activity, logger.New("error"))
}

func permissiveActivity() *MockActivity {
	activity := &MockActivity{}
	activity.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	activity.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return activity
}

func TestCreateAppointment_ForcesPendingAndCreatedBy(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	var captured *types.Appointment
	store.On("CreateAppointment", mock.AnythingOfType("*types.Appointment")).
		Run(func(args mock.Arguments) {
			captured = args.Get(0).(*types.Appointment)
		}).
		Return(nil)

	actor := &types.UserClaims{UserID: "rec-1", Role: types.RoleReceptionist}
	req := &types.AppointmentCreateRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		AppointmentTime: time.Now().Add(24 * time.Hour),
	}

	apt, err := service.CreateAppointment(context.Background(), actor, req)

	assert.NoError(t, err)
	assert.NotNil(t, apt)
	assert.Equal(t, types.StatusPending, captured.Status)
	assert.Equal(t, "rec-1", captured.CreatedBy)
	assert.Nil(t, captured.CancelledAt)
	store.AssertExpectations(t)
}

func TestCreateAppointment_MissingParties(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.CreateAppointment(context.Background(), actor, &types.AppointmentCreateRequest{
		PatientID:       "pat-1",
		AppointmentTime: time.Now(),
	})

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
	store.AssertNotCalled(t, "CreateAppointment", mock.Anything)
}

func TestCreateAppointment_ScheduleDoctorMismatch(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	schedID := "sch-1"
	store.On("GetScheduleByID", schedID).Return(&types.Schedule{ID: schedID, DoctorID: "doc-other"}, nil)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.CreateAppointment(context.Background(), actor, &types.AppointmentCreateRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		ScheduleID:      &schedID,
		AppointmentTime: time.Now().Add(time.Hour),
	})

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestCancelAppointment_SetsStatusAndTimestampTogether(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	apt := &types.Appointment{
		ID:        "apt-1",
		DoctorID:  "doc-1",
		PatientID: "pat-1",
		Status:    types.StatusConfirmed,
	}

	store.On("GetAppointmentByID", "apt-1").Return(apt, nil)
	store.On("SetAppointmentStatus", "apt-1", types.StatusCancelled, mock.AnythingOfType("*time.Time")).Return(nil)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	cancelled, err := service.CancelAppointment(context.Background(), actor, "apt-1")

	assert.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	store.AssertExpectations(t)
}

func TestCancelAppointment_AlreadyCancelledConflict(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	cancelledAt := time.Now().Add(-time.Hour)
	apt := &types.Appointment{
		ID:          "apt-1",
		DoctorID:    "doc-1",
		PatientID:   "pat-1",
		Status:      types.StatusCancelled,
		CancelledAt: &cancelledAt,
	}

	store.On("GetAppointmentByID", "apt-1").Return(apt, nil)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.CancelAppointment(context.Background(), actor, "apt-1")

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeConflict, ce.Type)
	assert.Equal(t, types.ErrCodeAlreadyCancelled, ce.Code)
	store.AssertNotCalled(t, "SetAppointmentStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelAppointment_StrangerForbidden(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	apt := &types.Appointment{ID: "apt-1", DoctorID: "doc-1", PatientID: "pat-1", Status: types.StatusPending}
	store.On("GetAppointmentByID", "apt-1").Return(apt, nil)

	actor := &types.UserClaims{UserID: "pat-2", Role: types.RolePatient}
	_, err := service.CancelAppointment(context.Background(), actor, "apt-1")

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
}

func TestRescheduleAppointment_RequiresBothFields(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	newTime := time.Now().Add(48 * time.Hour)

	// only a time, no schedule
	_, err := service.RescheduleAppointment(context.Background(), actor, "apt-1", &types.RescheduleRequest{
		AppointmentTime: &newTime,
	})
	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)

	// only a schedule, no time
	schedID := "sch-1"
	_, err = service.RescheduleAppointment(context.Background(), actor, "apt-1", &types.RescheduleRequest{
		ScheduleID: &schedID,
	})
	ce, ok = types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)

	store.AssertNotCalled(t, "GetAppointmentByID", mock.Anything)
}

func TestRescheduleAppointment_ResetsToPendingAndClearsCancellation(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	cancelledAt := time.Now().Add(-time.Hour)
	apt := &types.Appointment{
		ID:          "apt-1",
		DoctorID:    "doc-1",
		PatientID:   "pat-1",
		Status:      types.StatusCancelled,
		CancelledAt: &cancelledAt,
	}

	newTime := time.Now().Add(72 * time.Hour)
	schedID := "sch-1"

	store.On("GetAppointmentByID", "apt-1").Return(apt, nil)
	store.On("GetScheduleByID", schedID).Return(&types.Schedule{ID: schedID, DoctorID: "doc-1"}, nil)
	store.On("RescheduleAppointment", "apt-1", newTime, schedID).Return(nil)

	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	updated, err := service.RescheduleAppointment(context.Background(), actor, "apt-1", &types.RescheduleRequest{
		AppointmentTime: &newTime,
		ScheduleID:      &schedID,
	})

	assert.NoError(t, err)
	assert.Equal(t, types.StatusPending, updated.Status)
	assert.Nil(t, updated.CancelledAt)
	assert.Equal(t, newTime, updated.AppointmentTime)
	store.AssertExpectations(t)
}

func TestUpdateAppointmentStatus_RejectsUnknownStatus(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	actor := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}
	_, err := service.UpdateAppointmentStatus(context.Background(), actor, "apt-1", "Paused")

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrCodeInvalidStatus, ce.Code)
	store.AssertNotCalled(t, "SetAppointmentStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAppointmentStatus_EnteringCancelledStampsTimestamp(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	apt := &types.Appointment{
		ID:        "apt-1",
		DoctorID:  "doc-1",
		PatientID: "pat-1",
		Status:    types.StatusPending,
	}

	store.On("GetAppointmentByID", "apt-1").Return(apt, nil)
	store.On("SetAppointmentStatus", "apt-1", types.StatusCancelled, mock.AnythingOfType("*time.Time")).Return(nil)

	actor := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}
	updated, err := service.UpdateAppointmentStatus(context.Background(), actor, "apt-1", "Cancelled")

	assert.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, updated.Status)
	assert.NotNil(t, updated.CancelledAt)
	store.AssertExpectations(t)
}

func TestUpdateAppointmentStatus_LeavingCancelledClearsTimestamp(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	cancelledAt := time.Now().Add(-time.Hour)
	apt := &types.Appointment{
		ID:          "apt-1",
		DoctorID:    "doc-1",
		PatientID:   "pat-1",
		Status:      types.StatusCancelled,
		CancelledAt: &cancelledAt,
	}

	store.On("GetAppointmentByID", "apt-1").Return(apt, nil)
	store.On("SetAppointmentStatus", "apt-1", types.StatusConfirmed, (*time.Time)(nil)).Return(nil)

	actor := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}
	updated, err := service.UpdateAppointmentStatus(context.Background(), actor, "apt-1", "Confirmed")

	assert.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, updated.Status)
	assert.Nil(t, updated.CancelledAt)
	store.AssertExpectations(t)
}

func TestListAppointments_ScopesByRole(t *testing.T) {
	testCases := []struct {
		name          string
		actor         *types.UserClaims
		wantDoctorID  string
		wantPatientID string
	}{
		{
			name:          "doctor sees own calendar",
			actor:         &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor},
			wantDoctorID:  "doc-1",
			wantPatientID: "",
		},
		{
			name:          "patient sees own appointments",
			actor:         &types.UserClaims{UserID: "pat-1", Role: types.RolePatient},
			wantDoctorID:  "",
			wantPatientID: "pat-1",
		},
		{
			name:          "staff filter passes through",
			actor:         &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin},
			wantDoctorID:  "doc-9",
			wantPatientID: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &MockStore{}
			service := newTestService(store, permissiveActivity())

			var captured *types.AppointmentFilters
			store.On("ListAppointments", mock.AnythingOfType("*types.AppointmentFilters")).
				Run(func(args mock.Arguments) {
					captured = args.Get(0).(*types.AppointmentFilters)
				}).
				Return([]*types.Appointment{}, nil)

			filters := &types.AppointmentFilters{DoctorID: "doc-9"}
			_, err := service.ListAppointments(context.Background(), tc.actor, filters)

			assert.NoError(t, err)
			assert.Equal(t, tc.wantDoctorID, captured.DoctorID)
			assert.Equal(t, tc.wantPatientID, captured.PatientID)
		})
	}
}

func TestCreateSchedule_DoctorOnlyForSelf(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	_, err := service.CreateSchedule(context.Background(), actor, &types.Schedule{
		DoctorID:  "doc-2",
		Weekday:   1,
		StartTime: "09:00",
		EndTime:   "12:00",
	})

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
	store.AssertNotCalled(t, "CreateSchedule", mock.Anything)
}

func TestCreateSchedule_ValidatesTimes(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}

	_, err := service.CreateSchedule(context.Background(), actor, &types.Schedule{
		DoctorID:  "doc-1",
		Weekday:   1,
		StartTime: "25:00",
		EndTime:   "12:00",
	})
	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)

	_, err = service.CreateSchedule(context.Background(), actor, &types.Schedule{
		DoctorID:  "doc-1",
		Weekday:   1,
		StartTime: "14:00",
		EndTime:   "09:00",
	})
	ce, ok = types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, ce.Type)
}

func TestGetSchedule_PatientForbidden(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	store.On("GetScheduleByID", "sch-1").Return(&types.Schedule{ID: "sch-1", DoctorID: "doc-1"}, nil)

	actor := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	_, err := service.GetSchedule(context.Background(), actor, "sch-1")

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeAuthorization, ce.Type)
}

func TestGetSchedule_OwnerAndStaffAllowed(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	store.On("GetScheduleByID", "sch-1").Return(&types.Schedule{ID: "sch-1", DoctorID: "doc-1"}, nil)

	owner := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	sched, err := service.GetSchedule(context.Background(), owner, "sch-1")
	assert.NoError(t, err)
	assert.Equal(t, "sch-1", sched.ID)

	staff := &types.UserClaims{UserID: "rec-1", Role: types.RoleReceptionist}
	_, err = service.GetSchedule(context.Background(), staff, "sch-1")
	assert.NoError(t, err)

	stranger := &types.UserClaims{UserID: "doc-2", Role: types.RoleDoctor}
	_, err = service.GetSchedule(context.Background(), stranger, "sch-1")
	assert.Error(t, err)
}

func TestListSchedules_ScopesByRole(t *testing.T) {
	testCases := []struct {
		name         string
		actor        *types.UserClaims
		filter       string
		wantDoctorID string
	}{
		{
			name:         "doctor scoped to own slots",
			actor:        &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor},
			filter:       "doc-9",
			wantDoctorID: "doc-1",
		},
		{
			name:         "patient scoped to own id",
			actor:        &types.UserClaims{UserID: "pat-1", Role: types.RolePatient},
			filter:       "doc-9",
			wantDoctorID: "pat-1",
		},
		{
			name:         "staff filter passes through",
			actor:        &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin},
			filter:       "doc-9",
			wantDoctorID: "doc-9",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &MockStore{}
			service := newTestService(store, permissiveActivity())

			store.On("ListSchedules", tc.wantDoctorID).Return([]*types.Schedule{}, nil)

			_, err := service.ListSchedules(context.Background(), tc.actor, tc.filter)

			assert.NoError(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestCreateSchedule_DefaultsDoctorToActor(t *testing.T) {
	store := &MockStore{}
	service := newTestService(store, permissiveActivity())

	var captured *types.Schedule
	store.On("CreateSchedule", mock.AnythingOfType("*types.Schedule")).
		Run(func(args mock.Arguments) {
			captured = args.Get(0).(*types.Schedule)
		}).
		Return(nil)

	actor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	sched, err := service.CreateSchedule(context.Background(), actor, &types.Schedule{
		Weekday:   3,
		StartTime: "09:00",
		EndTime:   "17:00",
	})

	assert.NoError(t, err)
	assert.Equal(t, "doc-1", captured.DoctorID)
	assert.NotEmpty(t, sched.ID)
}
