package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Anandhalagan/LIMS/internal/resultcalc"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*types.Order), args.Error(1)
}

func (m *mockOrders) ListByGroup(ctx context.Context, groupID string) ([]*types.Order, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]*types.Order), args.Error(1)
}

func (m *mockOrders) GetResult(ctx context.Context, orderID int64) (*types.Result, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(*types.Result), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetTest(ctx context.Context, id int64) (*types.LabTest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*types.LabTest), args.Error(1)
}

type mockPatients struct {
	mock.Mock
}

func (m *mockPatients) GetRecord(ctx context.Context, id int64) (*types.Patient, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*types.Patient), args.Error(1)
}

func newTestService() (*Service, *mockOrders, *mockCatalog, *mockPatients) {
	orders := &mockOrders{}
	catalog := &mockCatalog{}
	patients := &mockPatients{}
	return NewService(orders, catalog, patients, logger.New("report-test", "error")), orders, catalog, patients
}

func lipidTest() *types.LabTest {
	return &types.LabTest{
		ID:         3,
		Code:       "LIPID",
		Name:       "Lipid Profile",
		Department: "Biochemistry",
		Template: types.TestTemplate{
			{Name: "Total Cholesterol", Type: types.FieldTypeFloat, Unit: "mg/dL", Reference: types.PlainReference("<200")},
			{Name: "HDL Cholesterol", Type: types.FieldTypeFloat, Unit: "mg/dL",
				Reference: types.StructuredReference(">40", ">50", "", nil)},
			{Name: "LDL Cholesterol", Type: types.FieldTypeFloat, Unit: "mg/dL", Reference: types.PlainReference("<130")},
		},
	}
}

func TestForOrderClassifiesAgainstResolvedRanges(t *testing.T) {
	svc, orders, catalog, patients := newTestService()

	orders.On("GetOrder", mock.Anything, int64(10)).Return(
		&types.Order{ID: 10, PatientID: 1, TestID: 3, Status: types.OrderStatusCompleted}, nil)
	catalog.On("GetTest", mock.Anything, int64(3)).Return(lipidTest(), nil)
	patients.On("GetRecord", mock.Anything, int64(1)).Return(
		&types.Patient{ID: 1, Age: 45, Gender: "Female"}, nil)
	orders.On("GetResult", mock.Anything, int64(10)).Return(&types.Result{
		OrderID:    10,
		ResultDate: time.Now(),
		Values: map[string]interface{}{
			"Total Cholesterol": "210",
			"HDL Cholesterol":   "45",
			"LDL Cholesterol":   "120.00",
		},
	}, nil)

	report, err := svc.ForOrder(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	// 210 against "<200" is out of range.
	assert.Equal(t, resultcalc.StatusAbnormal, report.Rows[0].Result.Status)
	// Female range ">50" applies, so 45 is low.
	assert.Equal(t, ">50", report.Rows[1].ReferenceRange)
	assert.Equal(t, resultcalc.StatusAbnormal, report.Rows[1].Result.Status)
	// 120.00 against "<130" is fine.
	assert.Equal(t, resultcalc.StatusNormal, report.Rows[2].Result.Status)
	assert.Equal(t, "Biochemistry", report.Department)
}

func TestForOrderRendersUntemplatedValuesUnclassified(t *testing.T) {
	svc, orders, catalog, patients := newTestService()

	orders.On("GetOrder", mock.Anything, int64(10)).Return(
		&types.Order{ID: 10, PatientID: 1, TestID: 3, Status: types.OrderStatusCompleted}, nil)
	catalog.On("GetTest", mock.Anything, int64(3)).Return(&types.LabTest{
		ID: 3, Code: "LIPID", Name: "Lipid Profile",
		Template: types.TestTemplate{
			{Name: "Total Cholesterol", Type: types.FieldTypeFloat, Reference: types.PlainReference("<200")},
		},
	}, nil)
	patients.On("GetRecord", mock.Anything, int64(1)).Return(
		&types.Patient{ID: 1, Age: 45, Gender: "Male"}, nil)
	orders.On("GetResult", mock.Anything, int64(10)).Return(&types.Result{
		OrderID: 10,
		Values: map[string]interface{}{
			"Total Cholesterol": "180",
			"VLDL Cholesterol":  "30.00",
		},
	}, nil)

	report, err := svc.ForOrder(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "VLDL Cholesterol", report.Rows[1].Field)
	assert.Equal(t, resultcalc.NoReference, report.Rows[1].ReferenceRange)
	assert.Equal(t, resultcalc.StatusUnclassified, report.Rows[1].Result.Status)
}

func TestForGroupSectionsByDepartmentAndSkipsPending(t *testing.T) {
	svc, orders, catalog, patients := newTestService()

	groupOrders := []*types.Order{
		{ID: 10, PatientID: 1, TestID: 3, Status: types.OrderStatusCompleted},
		{ID: 11, PatientID: 1, TestID: 4, Status: types.OrderStatusCompleted},
		{ID: 12, PatientID: 1, TestID: 5, Status: types.OrderStatusPending},
	}
	orders.On("ListByGroup", mock.Anything, "g1").Return(groupOrders, nil)
	catalog.On("GetTest", mock.Anything, int64(3)).Return(lipidTest(), nil)
	catalog.On("GetTest", mock.Anything, int64(4)).Return(&types.LabTest{
		ID: 4, Code: "CBC", Name: "Complete Blood Count", Department: "Hematology",
	}, nil)
	patients.On("GetRecord", mock.Anything, int64(1)).Return(
		&types.Patient{ID: 1, Age: 45, Gender: "Male"}, nil)
	orders.On("GetResult", mock.Anything, int64(10)).Return(
		&types.Result{OrderID: 10, Values: map[string]interface{}{"Total Cholesterol": "180"}}, nil)
	orders.On("GetResult", mock.Anything, int64(11)).Return(
		&types.Result{OrderID: 11, Values: map[string]interface{}{"Hemoglobin": "13.5"}}, nil)

	sections, err := svc.ForGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "Biochemistry", sections[0].Department)
	assert.Equal(t, "Hematology", sections[1].Department)
	orders.AssertNotCalled(t, "GetResult", mock.Anything, int64(12))
}
