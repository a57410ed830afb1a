package archive

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anandhalagan/LIMS/pkg/database"
	"github.com/Anandhalagan/LIMS/pkg/encryption"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.New("archive-test", "error")
	encryptor, err := encryption.NewService([]byte("test-key"))
	require.NoError(t, err)

	svc := NewService(NewRepository(sqlDB, log), database.NewFromSQL(sqlDB, log), encryptor, nil, log)
	return svc, mockDB
}

// snapshotCapture matches any argument and keeps the raw payload so the
// test can inspect what was archived.
type snapshotCapture struct {
	data []byte
}

func (c *snapshotCapture) Match(v driver.Value) bool {
	switch data := v.(type) {
	case []byte:
		c.data = data
	case string:
		c.data = []byte(data)
	default:
		return false
	}
	return true
}

func testSnapshot() *PatientSnapshot {
	orderDate := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &PatientSnapshot{
		Patient: types.Patient{
			ID:        1,
			PID:       "TRY00001",
			Name:      "ciphertext-name",
			Age:       34,
			Gender:    "Female",
			CreatedAt: orderDate,
		},
		Orders: []OrderSnapshot{
			{
				Order: types.Order{ID: 10, PatientID: 1, TestID: 3, OrderDate: orderDate,
					Status: types.OrderStatusCompleted, GroupID: "4be0643f-1d98-4f87-9b3f-0b2a6d4800c0"},
				Result: &types.Result{ID: 20, OrderID: 10, ResultDate: orderDate,
					Values: map[string]interface{}{"Total Cholesterol": "200", "LDL Cholesterol": "120.00"}},
				Comments: []types.OrderComment{{ID: 30, OrderID: 10, Comment: "fasting sample", Timestamp: orderDate}},
			},
			{
				Order: types.Order{ID: 11, PatientID: 1, TestID: 4, OrderDate: orderDate,
					Status: types.OrderStatusPending, GroupID: "4be0643f-1d98-4f87-9b3f-0b2a6d4800c0"},
			},
		},
	}
}

func archiveEntryRows(t *testing.T, id int64, entityType string, snap *PatientSnapshot) *sqlmock.Rows {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "entity_type", "entity_id", "deleted_by", "deleted_at", "data"}).
		AddRow(id, entityType, int64(1), nil, time.Now(), data)
}

func TestArchivePatientTxSnapshotsFullAggregate(t *testing.T) {
	svc, mockDB := newTestService(t)
	orderDate := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT id, title, pid, name, age, gender, contact, address, created_at")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "pid", "name", "age", "gender", "contact", "address", "created_at"}).
			AddRow(int64(1), "", "TRY00001", "ciphertext-name", 34, "Female", "", "", orderDate))
	mockDB.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "test_id", "order_date", "status",
			"referring_physician", "payment_method", "discount", "group_id"}).
			AddRow(int64(10), int64(1), int64(3), orderDate, types.OrderStatusCompleted, "", "", 0.0, "g1").
			AddRow(int64(11), int64(1), int64(4), orderDate, types.OrderStatusPending, "", "", 0.0, "g1"))
	mockDB.ExpectQuery(regexp.QuoteMeta("FROM results")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "result_date", "results", "notes"}).
			AddRow(int64(20), int64(10), orderDate, []byte(`{"Total Cholesterol":"200"}`), ""))
	mockDB.ExpectQuery(regexp.QuoteMeta("FROM order_comments")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "comment", "timestamp"}).
			AddRow(int64(30), int64(10), "fasting sample", orderDate))
	mockDB.ExpectQuery(regexp.QuoteMeta("FROM results")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mockDB.ExpectQuery(regexp.QuoteMeta("FROM order_comments")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "comment", "timestamp"}))

	capture := &snapshotCapture{}
	deletedBy := int64(9)
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO archive_entries")).
		WithArgs(types.ArchiveEntityPatient, int64(1), &deletedBy, sqlmock.AnyArg(), capture).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	sqlDB := svc.db.DB
	tx, err := sqlDB.Begin()
	require.NoError(t, err)

	archiveID, err := svc.ArchivePatientTx(context.Background(), tx, 1, &deletedBy)
	require.NoError(t, err)
	assert.Equal(t, int64(77), archiveID)

	var snap PatientSnapshot
	require.NoError(t, json.Unmarshal(capture.data, &snap))
	assert.Equal(t, "TRY00001", snap.Patient.PID)
	assert.Equal(t, "ciphertext-name", snap.Patient.Name)
	require.Len(t, snap.Orders, 2)
	require.NotNil(t, snap.Orders[0].Result)
	assert.Equal(t, "200", snap.Orders[0].Result.Values["Total Cholesterol"])
	assert.Len(t, snap.Orders[0].Comments, 1)
	assert.Nil(t, snap.Orders[1].Result)
}

func TestRestorePatientAssignsFreshIDs(t *testing.T) {
	svc, mockDB := newTestService(t)
	snap := testSnapshot()

	mockDB.ExpectQuery(regexp.QuoteMeta("FROM archive_entries")).
		WithArgs(int64(77)).
		WillReturnRows(archiveEntryRows(t, 77, types.ArchiveEntityPatient, snap))

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients")).
		WithArgs("", "TRY00001", "ciphertext-name", 34, "Female", "", "", snap.Patient.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(50)))
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(int64(50), int64(3), snap.Orders[0].Order.OrderDate, types.OrderStatusCompleted,
			"", "", 0.0, snap.Orders[0].Order.GroupID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(60)))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WithArgs(int64(60), sqlmock.AnyArg(), sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO order_comments")).
		WithArgs(int64(60), "fasting sample", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(int64(50), int64(4), snap.Orders[1].Order.OrderDate, types.OrderStatusPending,
			"", "", 0.0, snap.Orders[1].Order.GroupID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(61)))
	mockDB.ExpectCommit()

	restored, err := svc.RestorePatient(context.Background(), 77, &types.User{ID: 9, Role: types.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, int64(50), restored.ID)
	assert.NotEqual(t, snap.Patient.ID, restored.ID)
	assert.Equal(t, "TRY00001", restored.PID)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRestorePatientLeavesEntryRestorable(t *testing.T) {
	svc, mockDB := newTestService(t)
	orderDate := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	snap := &PatientSnapshot{
		Patient: types.Patient{ID: 1, PID: "TRY00002", Name: "ciphertext-name",
			Age: 51, Gender: "Male", CreatedAt: orderDate},
	}

	newIDs := []int64{50, 51}
	for _, newID := range newIDs {
		mockDB.ExpectQuery(regexp.QuoteMeta("FROM archive_entries")).
			WithArgs(int64(77)).
			WillReturnRows(archiveEntryRows(t, 77, types.ArchiveEntityPatient, snap))
		mockDB.ExpectBegin()
		mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients")).
			WithArgs("", "TRY00002", "ciphertext-name", 51, "Male", "", "", orderDate).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(newID))
		mockDB.ExpectCommit()
	}

	first, err := svc.RestorePatient(context.Background(), 77, nil)
	require.NoError(t, err)
	second, err := svc.RestorePatient(context.Background(), 77, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.PID, second.PID)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRestorePatientRollsBackMidway(t *testing.T) {
	svc, mockDB := newTestService(t)
	snap := testSnapshot()

	mockDB.ExpectQuery(regexp.QuoteMeta("FROM archive_entries")).
		WithArgs(int64(77)).
		WillReturnRows(archiveEntryRows(t, 77, types.ArchiveEntityPatient, snap))

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(50)))
	mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(60)))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnError(errors.New("disk full"))
	mockDB.ExpectRollback()

	_, err := svc.RestorePatient(context.Background(), 77, nil)
	assert.Error(t, err)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRestoreRejectsUnsupportedEntityType(t *testing.T) {
	svc, mockDB := newTestService(t)

	mockDB.ExpectQuery(regexp.QuoteMeta("FROM archive_entries")).
		WithArgs(int64(5)).
		WillReturnRows(archiveEntryRows(t, 5, "order", testSnapshot()))

	_, err := svc.RestorePatient(context.Background(), 5, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeUnsupported))

	var labErr *types.LabError
	require.ErrorAs(t, err, &labErr)
	assert.Equal(t, types.ErrCodeUnsupportedEntity, labErr.Code)
}

func TestRestoreCorruptSnapshotIsIrrecoverable(t *testing.T) {
	svc, mockDB := newTestService(t)

	rows := sqlmock.NewRows([]string{"id", "entity_type", "entity_id", "deleted_by", "deleted_at", "data"}).
		AddRow(int64(6), types.ArchiveEntityPatient, int64(1), nil, time.Now(), []byte("{not json"))
	mockDB.ExpectQuery(regexp.QuoteMeta("FROM archive_entries")).
		WithArgs(int64(6)).
		WillReturnRows(rows)

	_, err := svc.RestorePatient(context.Background(), 6, nil)
	require.Error(t, err)

	var labErr *types.LabError
	require.ErrorAs(t, err, &labErr)
	assert.Equal(t, types.ErrCodeSerializationFailed, labErr.Code)
}

func TestPurgeRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Purge(context.Background(), 1, &types.User{ID: 2, Role: types.RoleUser})
	assert.True(t, types.IsErrorType(err, types.ErrorTypeValidation))
}

func TestListSurvivesCorruptSnapshot(t *testing.T) {
	svc, mockDB := newTestService(t)

	good, err := json.Marshal(testSnapshot())
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "entity_type", "entity_id", "deleted_by", "deleted_at", "data"}).
		AddRow(int64(2), types.ArchiveEntityPatient, int64(1), nil, time.Now(), []byte("{not json")).
		AddRow(int64(1), types.ArchiveEntityPatient, int64(1), nil, time.Now(), good)

	mockDB.ExpectQuery(regexp.QuoteMeta("FROM archive_entries")).
		WithArgs(types.ArchiveEntityPatient).
		WillReturnRows(rows)

	summaries, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.True(t, summaries[0].Name.Failed)
	assert.Equal(t, 0, summaries[0].Orders)
	assert.Equal(t, "TRY00001", summaries[1].PID)
	assert.Equal(t, 2, summaries[1].Orders)
}
