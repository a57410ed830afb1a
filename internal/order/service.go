package order

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Anandhalagan/LIMS/internal/resultcalc"
	"github.com/Anandhalagan/LIMS/pkg/database"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/monitoring"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Catalog is the slice of the test catalog the order service needs
type Catalog interface {
	GetTest(ctx context.Context, id int64) (*types.LabTest, error)
}

// PlaceOrdersInput creates one or more orders in a single group
type PlaceOrdersInput struct {
	PatientID          int64   `json:"patient_id"`
	TestIDs            []int64 `json:"test_ids"`
	ReferringPhysician string  `json:"referring_physician"`
	PaymentMethod      string  `json:"payment_method"`
	Discount           float64 `json:"discount"`
}

// Service implements order placement and the result lifecycle
type Service struct {
	repo    *Repository
	db      *database.DB
	catalog Catalog
	logger  *logger.Logger
}

// NewService creates a new order service
func NewService(repo *Repository, db *database.DB, catalog Catalog, log *logger.Logger) *Service {
	return &Service{repo: repo, db: db, catalog: catalog, logger: log}
}

// PlaceOrders creates one order per test, all sharing a fresh group id, in a
// single transaction. Orders start Pending.
func (s *Service) PlaceOrders(ctx context.Context, input *PlaceOrdersInput) ([]*types.Order, error) {
	if input.PatientID == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "patient id is required", nil)
	}
	if len(input.TestIDs) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "at least one test is required", nil)
	}
	if input.Discount < 0 || input.Discount > 100 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "discount must be between 0 and 100", nil)
	}

	groupID := uuid.New().String()
	orderDate := time.Now().UTC()

	orders := make([]*types.Order, 0, len(input.TestIDs))
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, testID := range input.TestIDs {
			o := &types.Order{
				PatientID:          input.PatientID,
				TestID:             testID,
				OrderDate:          orderDate,
				Status:             types.OrderStatusPending,
				ReferringPhysician: input.ReferringPhysician,
				PaymentMethod:      input.PaymentMethod,
				Discount:           input.Discount,
				GroupID:            groupID,
			}
			if err := s.repo.CreateTx(ctx, tx, o); err != nil {
				return err
			}
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for range orders {
		monitoring.RecordOrderCreated()
	}
	s.logger.WithFields(map[string]interface{}{
		"patient_id": input.PatientID,
		"group_id":   groupID,
		"orders":     len(orders),
	}).Info("Placed order group")
	return orders, nil
}

// GetOrder returns one order
func (s *Service) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByGroup returns the orders placed together under one group id
func (s *Service) ListByGroup(ctx context.Context, groupID string) ([]*types.Order, error) {
	return s.repo.ListByGroup(ctx, groupID)
}

// ListOrdersForPatient returns a patient's orders
func (s *Service) ListOrdersForPatient(ctx context.Context, patientID int64) ([]*types.Order, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

// SaveResult stores the entered values for an order and marks it Completed,
// in one transaction. Derived fields are recomputed server-side before the
// write, so persisted result sets always carry them regardless of what the
// client sent.
func (s *Service) SaveResult(ctx context.Context, orderID int64, values map[string]interface{}, notes string) (*types.Result, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	merged, err := s.withDerivedValues(ctx, o.TestID, values)
	if err != nil {
		return nil, err
	}

	res := &types.Result{
		OrderID:    orderID,
		ResultDate: time.Now().UTC(),
		Values:     merged,
		Notes:      notes,
	}
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.SaveResultTx(ctx, tx, res); err != nil {
			return err
		}
		return s.repo.UpdateStatusTx(ctx, tx, orderID, types.OrderStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordResultSaved()
	return res, nil
}

// EditResult replaces an order's result values, re-deriving computed fields
func (s *Service) EditResult(ctx context.Context, orderID int64, values map[string]interface{}, notes string) (*types.Result, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetResultByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	merged, err := s.withDerivedValues(ctx, o.TestID, values)
	if err != nil {
		return nil, err
	}

	existing.Values = merged
	existing.Notes = notes
	existing.ResultDate = time.Now().UTC()
	if err := s.repo.UpdateResult(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// GetResult returns the result set for an order
func (s *Service) GetResult(ctx context.Context, orderID int64) (*types.Result, error) {
	return s.repo.GetResultByOrderID(ctx, orderID)
}

// DeleteResult removes an order's result and reverts the order to Pending,
// in one transaction.
func (s *Service) DeleteResult(ctx context.Context, orderID int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.DeleteResultTx(ctx, tx, orderID); err != nil {
			return err
		}
		return s.repo.UpdateStatusTx(ctx, tx, orderID, types.OrderStatusPending)
	})
}

// AddComment attaches a remark to an order
func (s *Service) AddComment(ctx context.Context, orderID int64, comment string) (*types.OrderComment, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "comment must not be empty", nil)
	}
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	c := &types.OrderComment{OrderID: orderID, Comment: comment}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns an order's comments
func (s *Service) ListComments(ctx context.Context, orderID int64) ([]*types.OrderComment, error) {
	return s.repo.ListComments(ctx, orderID)
}

// withDerivedValues recomputes the derivation rules for the order's test and
// merges the derived fields over the entered ones. Derived values are stored
// formatted to the template's decimal places so stored sets match what the
// entry screen showed.
func (s *Service) withDerivedValues(ctx context.Context, testID int64, values map[string]interface{}) (map[string]interface{}, error) {
	test, err := s.catalog.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]interface{}, len(values))
	for k, v := range values {
		merged[k] = v
	}

	rules := resultcalc.RulesFor(test.Code)
	if len(rules) == 0 {
		return merged, nil
	}

	derived := resultcalc.RecalculateEntered(merged, rules)
	for target := range rules {
		// Stale derived values from the client are dropped when their
		// dependencies no longer support them.
		delete(merged, target)
	}
	for name, value := range derived {
		decimals := 0
		if spec, ok := test.Template.Field(name); ok {
			decimals = spec.Decimals
		}
		merged[name] = resultcalc.FormatValue(value, decimals)
	}
	return merged, nil
}
