package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Anandhalagan/LIMS/internal/resultcalc"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Orders is the slice of the order store reporting needs
type Orders interface {
	GetOrder(ctx context.Context, id int64) (*types.Order, error)
	ListByGroup(ctx context.Context, groupID string) ([]*types.Order, error)
	GetResult(ctx context.Context, orderID int64) (*types.Result, error)
}

// Catalog resolves templates for report rows
type Catalog interface {
	GetTest(ctx context.Context, id int64) (*types.LabTest, error)
}

// Patients provides the demographics that condition reference ranges
type Patients interface {
	GetRecord(ctx context.Context, id int64) (*types.Patient, error)
}

// Row is one rendered report line: the field, its value, the reference
// range resolved for this patient, and where the value falls in it.
type Row struct {
	Field          string                    `json:"field"`
	Unit           string                    `json:"unit,omitempty"`
	Method         string                    `json:"method,omitempty"`
	ReferenceRange string                    `json:"reference_range"`
	Result         resultcalc.Classification `json:"result"`
}

// OrderReport is the rendered report for one order
type OrderReport struct {
	OrderID    int64     `json:"order_id"`
	TestCode   string    `json:"test_code"`
	TestName   string    `json:"test_name"`
	Department string    `json:"department,omitempty"`
	ResultDate time.Time `json:"result_date"`
	Rows       []Row     `json:"rows"`
	Notes      string    `json:"notes,omitempty"`
}

// DepartmentSection groups the reports of one department
type DepartmentSection struct {
	Department string        `json:"department"`
	Reports    []OrderReport `json:"reports"`
}

// Service assembles report views from stored results
type Service struct {
	orders   Orders
	catalog  Catalog
	patients Patients
	logger   *logger.Logger
}

// NewService creates a new report service
func NewService(orders Orders, catalog Catalog, patients Patients, log *logger.Logger) *Service {
	return &Service{orders: orders, catalog: catalog, patients: patients, logger: log}
}

// ForOrder renders the report for a single completed order
func (s *Service) ForOrder(ctx context.Context, orderID int64) (*OrderReport, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.buildReport(ctx, o)
}

// ForGroup renders every completed order in a group, sectioned by the
// test's department. Departments sort alphabetically with unnamed ones
// last; orders keep their placement sequence within a section.
func (s *Service) ForGroup(ctx context.Context, groupID string) ([]DepartmentSection, error) {
	orders, err := s.orders.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	byDept := make(map[string][]OrderReport)
	for _, o := range orders {
		if o.Status != types.OrderStatusCompleted {
			continue
		}
		report, err := s.buildReport(ctx, o)
		if err != nil {
			return nil, err
		}
		byDept[report.Department] = append(byDept[report.Department], *report)
	}

	depts := make([]string, 0, len(byDept))
	for dept := range byDept {
		depts = append(depts, dept)
	}
	sort.Slice(depts, func(i, j int) bool {
		if (depts[i] == "") != (depts[j] == "") {
			return depts[j] == ""
		}
		return depts[i] < depts[j]
	})

	sections := make([]DepartmentSection, 0, len(depts))
	for _, dept := range depts {
		sections = append(sections, DepartmentSection{Department: dept, Reports: byDept[dept]})
	}
	return sections, nil
}

func (s *Service) buildReport(ctx context.Context, o *types.Order) (*OrderReport, error) {
	test, err := s.catalog.GetTest(ctx, o.TestID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetRecord(ctx, o.PatientID)
	if err != nil {
		return nil, err
	}
	res, err := s.orders.GetResult(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	isChild := resultcalc.IsChild(p.Age)
	report := &OrderReport{
		OrderID:    o.ID,
		TestCode:   test.Code,
		TestName:   test.Name,
		Department: test.Department,
		ResultDate: res.ResultDate,
		Notes:      res.Notes,
	}

	seen := make(map[string]bool, len(test.Template))
	for _, spec := range test.Template {
		seen[spec.Name] = true
		value, ok := res.Values[spec.Name]
		if !ok {
			continue
		}
		display := displayValue(value)
		rangeText := resultcalc.ResolveReferenceRange(spec.Reference, p.Gender, isChild)
		report.Rows = append(report.Rows, Row{
			Field:          spec.Name,
			Unit:           spec.Unit,
			Method:         spec.Method,
			ReferenceRange: rangeText,
			Result:         resultcalc.Classify(display, rangeText),
		})
	}

	// Values without a template entry (ad hoc or derived fields on older
	// templates) still render, unclassified, after the templated rows.
	extras := make([]string, 0)
	for name := range res.Values {
		if !seen[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		display := displayValue(res.Values[name])
		report.Rows = append(report.Rows, Row{
			Field:          name,
			ReferenceRange: resultcalc.NoReference,
			Result:         resultcalc.Classify(display, resultcalc.NoReference),
		})
	}
	return report, nil
}

func displayValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
