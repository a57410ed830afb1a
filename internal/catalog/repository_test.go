package catalog

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, logger.New("catalog-test", "error")), mock
}

func TestCreateTestPersistsTemplateJSON(t *testing.T) {
	repo, mock := newTestRepo(t)

	test := &types.LabTest{
		Code:    "LIPID",
		Name:    "Lipid Profile",
		RateINR: 800,
		Template: types.TestTemplate{
			{Name: "Total Cholesterol", Type: types.FieldTypeFloat, Unit: "mg/dL", Reference: types.PlainReference("<200")},
		},
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tests")).
		WithArgs("LIPID", "Lipid Profile", "", 800.0, sqlmock.AnyArg(), "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	created, err := repo.Create(context.Background(), test)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateCodeReturnsConflict(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tests")).
		WithArgs("LIPID", "Lipid Profile", "", 800.0, sqlmock.AnyArg(), "").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tests_code_key"})

	_, err := repo.Create(context.Background(), &types.LabTest{Code: "LIPID", Name: "Lipid Profile", RateINR: 800})
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeConflict))

	var labErr *types.LabError
	require.ErrorAs(t, err, &labErr)
	assert.Equal(t, types.ErrCodeConflict, labErr.Code)
}

func TestUpdateDuplicateCodeReturnsConflict(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tests_code_key"})

	err := repo.Update(context.Background(), &types.LabTest{ID: 3, Code: "LFT", Name: "Liver Function Test"})
	assert.True(t, types.IsErrorType(err, types.ErrorTypeConflict))
}

func TestGetByCodeRoundTripsTemplate(t *testing.T) {
	repo, mock := newTestRepo(t)

	templateJSON := `[{"name":"Total Protein","type":"float","unit":"g/dL","reference":"6.0-8.3"},
		{"name":"Albumin","type":"float","unit":"g/dL","reference":{"male":"3.5-5.0","female":"3.4-4.8"}}]`

	rows := sqlmock.NewRows([]string{"id", "code", "name", "department", "rate_inr", "template", "notes"}).
		AddRow(int64(3), "LFT", "Liver Function Test", "Biochemistry", 600.0, []byte(templateJSON), "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, department, rate_inr, template, notes")).
		WithArgs("LFT").
		WillReturnRows(rows)

	test, err := repo.GetByCode(context.Background(), "LFT")
	require.NoError(t, err)
	require.Len(t, test.Template, 2)

	assert.Equal(t, "Total Protein", test.Template[0].Name)
	assert.Equal(t, "6.0-8.3", test.Template[0].Reference.Text)
	assert.True(t, test.Template[1].Reference.IsStructured())
	assert.Equal(t, "3.4-4.8", test.Template[1].Reference.Female)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, department, rate_inr, template, notes")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeNotFound))
}

func TestDeleteMissingTestReturnsNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tests WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 42)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeNotFound))
}
