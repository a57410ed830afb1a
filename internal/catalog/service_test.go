package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

func TestCreateTestValidation(t *testing.T) {
	svc := NewService(nil, logger.New("catalog-test", "error"))

	tests := []struct {
		name string
		test types.LabTest
	}{
		{"missing code", types.LabTest{Name: "Lipid Profile", RateINR: 800}},
		{"missing name", types.LabTest{Code: "LIPID", RateINR: 800}},
		{"negative rate", types.LabTest{Code: "LIPID", Name: "Lipid Profile", RateINR: -1}},
		{"duplicate field names", types.LabTest{
			Code: "LIPID", Name: "Lipid Profile", RateINR: 800,
			Template: types.TestTemplate{
				{Name: "HDL Cholesterol", Type: types.FieldTypeFloat},
				{Name: "HDL Cholesterol", Type: types.FieldTypeFloat},
			},
		}},
		{"unknown field type", types.LabTest{
			Code: "LIPID", Name: "Lipid Profile", RateINR: 800,
			Template: types.TestTemplate{
				{Name: "HDL Cholesterol", Type: "decimal"},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := tt.test
			_, err := svc.CreateTest(context.Background(), &test)
			assert.True(t, types.IsErrorType(err, types.ErrorTypeValidation))
		})
	}
}
