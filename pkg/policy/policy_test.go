package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

func TestCanAccess_Appointment(t *testing.T) {
	engine := NewEngine()

	apt := &types.Appointment{
		ID:        "apt-1",
		DoctorID:  "doc-1",
		PatientID: "pat-1",
	}

	testCases := []struct {
		name    string
		actor   *types.UserClaims
		action  Action
		allowed bool
	}{
		{
			name:    "admin bypasses ownership",
			actor:   &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin},
			action:  ActionUpdate,
			allowed: true,
		},
		{
			name:    "receptionist bypasses ownership",
			actor:   &types.UserClaims{UserID: "rec-1", Role: types.RoleReceptionist},
			action:  ActionView,
			allowed: true,
		},
		{
			name:    "owning doctor allowed",
			actor:   &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor},
			action:  ActionUpdate,
			allowed: true,
		},
		{
			name:    "other doctor denied",
			actor:   &types.UserClaims{UserID: "doc-2", Role: types.RoleDoctor},
			action:  ActionView,
			allowed: false,
		},
		{
			name:    "owning patient allowed",
			actor:   &types.UserClaims{UserID: "pat-1", Role: types.RolePatient},
			action:  ActionDelete,
			allowed: true,
		},
		{
			name:    "other patient denied",
			actor:   &types.UserClaims{UserID: "pat-2", Role: types.RolePatient},
			action:  ActionView,
			allowed: false,
		},
		{
			name:    "nurse without ownership denied",
			actor:   &types.UserClaims{UserID: "nurse-1", Role: types.RoleNurse},
			action:  ActionView,
			allowed: false,
		},
		{
			name:    "nil actor denied",
			actor:   nil,
			action:  ActionView,
			allowed: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, engine.CanAccess(tc.actor, tc.action, apt))
		})
	}
}

func TestCanAccess_Schedule(t *testing.T) {
	engine := NewEngine()

	sched := &types.Schedule{ID: "sch-1", DoctorID: "doc-1"}

	// Owning doctor manages their own schedule
	doctor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	assert.True(t, engine.CanAccess(doctor, ActionUpdate, sched))

	// Schedules have no patient party, so non-staff non-owners are denied
	patient := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	assert.False(t, engine.CanAccess(patient, ActionUpdate, sched))

	staff := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}
	assert.True(t, engine.CanAccess(staff, ActionDelete, sched))
}

func TestCanAccess_UploadIgnoresStaffBypass(t *testing.T) {
	engine := NewEngine()

	record := &types.MedicalRecord{ID: "rec-1", DoctorID: "doc-1", PatientID: "pat-1"}

	// Only the record's participants may upload
	admin := &types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin}
	assert.False(t, engine.CanAccess(admin, ActionUpload, record))

	doctor := &types.UserClaims{UserID: "doc-1", Role: types.RoleDoctor}
	assert.True(t, engine.CanAccess(doctor, ActionUpload, record))

	patient := &types.UserClaims{UserID: "pat-1", Role: types.RolePatient}
	assert.True(t, engine.CanAccess(patient, ActionUpload, record))
}
