package patient

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Anandhalagan/LIMS/pkg/database"
	"github.com/Anandhalagan/LIMS/pkg/encryption"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) ArchivePatientTx(ctx context.Context, tx *sql.Tx, patientID int64, deletedBy *int64) (int64, error) {
	args := m.Called(ctx, tx, patientID, deletedBy)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *mockArchiver) {
	t.Helper()
	sqlDB, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.New("patient-test", "error")
	encryptor, err := encryption.NewService([]byte("test-key"))
	require.NoError(t, err)

	db := database.NewFromSQL(sqlDB, log)
	repo := NewRepository(sqlDB, log)
	archiver := &mockArchiver{}
	svc := NewService(repo, db, encryptor, archiver, nil, log)
	return svc, mockDB, archiver
}

func TestRegisterAllocatesSequentialPID(t *testing.T) {
	svc, mockDB, _ := newTestService(t)

	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(SUBSTRING(pid FROM 4) AS INTEGER)), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(12))
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients")).
		WithArgs(sqlmock.AnyArg(), "TRY00013", sqlmock.AnyArg(), 34, "Female",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	view, err := svc.Register(context.Background(), &Input{
		Title:  "Ms",
		Name:   "Meena Kumari",
		Age:    34,
		Gender: "Female",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), view.ID)
	assert.Equal(t, "TRY00013", view.PID)
	assert.Equal(t, "Meena Kumari", view.Name.String())
	assert.False(t, view.Name.Failed)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), &Input{Name: "   "})
	assert.True(t, types.IsErrorType(err, types.ErrorTypeValidation))
}

func TestSearchMatchesDecryptedName(t *testing.T) {
	svc, mockDB, _ := newTestService(t)

	nameA, err := svc.encryptor.EncryptString("Meena Kumari")
	require.NoError(t, err)
	nameB, err := svc.encryptor.EncryptString("Ravi Shankar")
	require.NoError(t, err)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "pid", "name", "age", "gender", "contact", "address", "created_at"}).
		AddRow(int64(2), "", "TRY00002", nameB, 51, "Male", "", "", now).
		AddRow(int64(1), "", "TRY00001", nameA, 34, "Female", "", "", now)

	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT id, title, pid, name, age, gender, contact, address, created_at")).
		WillReturnRows(rows)

	views, err := svc.Search(context.Background(), "meena")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "TRY00001", views[0].PID)
	assert.Equal(t, "Meena Kumari", views[0].Name.String())
}

func TestGetSurfacesDecryptionFailureAsTypedState(t *testing.T) {
	svc, mockDB, _ := newTestService(t)

	rows := sqlmock.NewRows([]string{"id", "title", "pid", "name", "age", "gender", "contact", "address", "created_at"}).
		AddRow(int64(1), "", "TRY00001", "not-real-ciphertext", 34, "Female", "", "", time.Now())

	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT id, title, pid, name, age, gender, contact, address, created_at")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	view, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, view.Name.Failed)
	assert.Equal(t, encryption.FailedDisplay, view.Name.String())
}

func TestDeleteRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Delete(context.Background(), 1, &types.User{ID: 2, Role: types.RoleUser})
	assert.True(t, types.IsErrorType(err, types.ErrorTypeValidation))

	err = svc.Delete(context.Background(), 1, nil)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeValidation))
}

func TestDeleteArchivesThenDeletesInOneTx(t *testing.T) {
	svc, mockDB, archiver := newTestService(t)
	admin := &types.User{ID: 9, Role: types.RoleAdmin}

	archiver.On("ArchivePatientTx", mock.Anything, mock.Anything, int64(1), &admin.ID).
		Return(int64(77), nil)

	mockDB.ExpectBegin()
	mockDB.ExpectExec(regexp.QuoteMeta("DELETE FROM patients WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := svc.Delete(context.Background(), 1, admin)
	require.NoError(t, err)
	archiver.AssertExpectations(t)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestDeleteRollsBackWhenArchiveFails(t *testing.T) {
	svc, mockDB, archiver := newTestService(t)
	admin := &types.User{ID: 9, Role: types.RoleAdmin}

	archiver.On("ArchivePatientTx", mock.Anything, mock.Anything, int64(1), &admin.ID).
		Return(int64(0), errors.New("snapshot failed"))

	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	err := svc.Delete(context.Background(), 1, admin)
	assert.Error(t, err)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}
