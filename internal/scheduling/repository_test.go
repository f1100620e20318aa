package scheduling

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := &database.DB{DB: sqlDB}
	return NewRepository(db, logger.New("error")), mock
}

func TestSetAppointmentStatus_WritesBothColumnsAtOnce(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now()
	mock.ExpectExec(`UPDATE appointments SET status = \$1, cancelled_at = \$2 WHERE id = \$3`).
		WithArgs(types.StatusCancelled, &now, "apt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetAppointmentStatus("apt-1", types.StatusCancelled, &now)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAppointmentStatus_NullsTimestampWhenNotCancelled(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE appointments SET status = \$1, cancelled_at = \$2 WHERE id = \$3`).
		WithArgs(types.StatusConfirmed, (*time.Time)(nil), "apt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetAppointmentStatus("apt-1", types.StatusConfirmed, nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAppointmentStatus_MissingRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE appointments SET status = \$1, cancelled_at = \$2 WHERE id = \$3`).
		WithArgs(types.StatusCompleted, (*time.Time)(nil), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetAppointmentStatus("missing", types.StatusCompleted, nil)

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeNotFound, ce.Type)
}

func TestRescheduleAppointment_ResetsStatusAndClearsCancellation(t *testing.T) {
	repo, mock := newMockRepository(t)

	newTime := time.Now().Add(24 * time.Hour)
	mock.ExpectExec(`UPDATE appointments\s+SET appointment_time = \$1, schedule_id = \$2, status = \$3, cancelled_at = NULL\s+WHERE id = \$4`).
		WithArgs(newTime, "sch-1", types.StatusPending, "apt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RescheduleAppointment("apt-1", newTime, "sch-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByID_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT .* FROM appointments WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetAppointmentByID("missing")

	ce, ok := types.AsClinicError(err)
	assert.True(t, ok)
	assert.Equal(t, types.ErrorTypeNotFound, ce.Type)
}

func TestListAppointments_AppliesFilters(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{
		"id", "doctor_id", "patient_id", "schedule_id", "appointment_time",
		"status", "created_by", "created_at", "cancelled_at", "notes",
	}).AddRow("apt-1", "doc-1", "pat-1", nil, time.Now(), "Pending", "pat-1", time.Now(), nil, "")

	mock.ExpectQuery(`SELECT .* FROM appointments WHERE 1=1 AND doctor_id = \$1 AND status = \$2 ORDER BY appointment_time ASC`).
		WithArgs("doc-1", types.StatusPending).
		WillReturnRows(rows)

	appointments, err := repo.ListAppointments(&types.AppointmentFilters{
		DoctorID: "doc-1",
		Status:   types.StatusPending,
	})

	assert.NoError(t, err)
	assert.Len(t, appointments, 1)
	assert.Equal(t, "apt-1", appointments[0].ID)
}
