package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Repository handles order, result and comment persistence
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a new order repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// CreateTx inserts one order inside the caller's transaction
func (r *Repository) CreateTx(ctx context.Context, tx *sql.Tx, o *types.Order) error {
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = types.OrderStatusPending
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (patient_id, test_id, order_date, status, referring_physician, payment_method, discount, group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		o.PatientID,
		o.TestID,
		o.OrderDate,
		o.Status,
		o.ReferringPhysician,
		o.PaymentMethod,
		o.Discount,
		o.GroupID,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves one order
func (r *Repository) GetByID(ctx context.Context, id int64) (*types.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, test_id, order_date, status, referring_physician, payment_method, discount, group_id
		FROM orders
		WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("order %d not found", id))
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListForPatient returns a patient's orders newest first
func (r *Repository) ListForPatient(ctx context.Context, patientID int64) ([]*types.Order, error) {
	return r.list(ctx, `
		SELECT id, patient_id, test_id, order_date, status, referring_physician, payment_method, discount, group_id
		FROM orders
		WHERE patient_id = $1
		ORDER BY order_date DESC, id DESC`, patientID)
}

// ListByGroup returns the orders placed together under one group id,
// oldest first so the first order of the group is deterministic.
func (r *Repository) ListByGroup(ctx context.Context, groupID string) ([]*types.Order, error) {
	return r.list(ctx, `
		SELECT id, patient_id, test_id, order_date, status, referring_physician, payment_method, discount, group_id
		FROM orders
		WHERE group_id = $1
		ORDER BY id`, groupID)
}

func (r *Repository) list(ctx context.Context, query string, arg interface{}) ([]*types.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*types.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

// UpdateStatusTx sets an order's status inside the caller's transaction
func (r *Repository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error {
	result, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("order %d not found", orderID))
	}
	return nil
}

// SaveResultTx inserts a result row inside the caller's transaction. The
// orders.results one-to-one constraint surfaces as a conflict error here.
func (r *Repository) SaveResultTx(ctx context.Context, tx *sql.Tx, res *types.Result) error {
	if res.ResultDate.IsZero() {
		res.ResultDate = time.Now().UTC()
	}

	valuesJSON, err := json.Marshal(res.Values)
	if err != nil {
		return types.NewSerializationError("failed to marshal result values", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO results (order_id, result_date, results, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		res.OrderID,
		res.ResultDate,
		valuesJSON,
		res.Notes,
	).Scan(&res.ID)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// UpdateResult replaces an existing result's values and notes
func (r *Repository) UpdateResult(ctx context.Context, res *types.Result) error {
	valuesJSON, err := json.Marshal(res.Values)
	if err != nil {
		return types.NewSerializationError("failed to marshal result values", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE results SET result_date = $1, results = $2, notes = $3 WHERE order_id = $4`,
		res.ResultDate, valuesJSON, res.Notes, res.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update result: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("result for order %d not found", res.OrderID))
	}
	return nil
}

// GetResultByOrderID retrieves the result set for an order
func (r *Repository) GetResultByOrderID(ctx context.Context, orderID int64) (*types.Result, error) {
	var res types.Result
	var valuesJSON []byte
	var notes sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, result_date, results, notes
		FROM results
		WHERE order_id = $1`, orderID,
	).Scan(&res.ID, &res.OrderID, &res.ResultDate, &valuesJSON, &notes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("result for order %d not found", orderID))
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	res.Notes = notes.String
	if err := json.Unmarshal(valuesJSON, &res.Values); err != nil {
		return nil, types.NewSerializationError("failed to unmarshal result values", err)
	}
	return &res, nil
}

// DeleteResultTx removes an order's result inside the caller's transaction
func (r *Repository) DeleteResultTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM results WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("result for order %d not found", orderID))
	}
	return nil
}

// AddComment attaches a free-text remark to an order
func (r *Repository) AddComment(ctx context.Context, c *types.OrderComment) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO order_comments (order_id, comment, timestamp)
		VALUES ($1, $2, $3)
		RETURNING id`,
		c.OrderID, c.Comment, c.Timestamp,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// ListComments returns an order's comments oldest first
func (r *Repository) ListComments(ctx context.Context, orderID int64) ([]*types.OrderComment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, comment, timestamp
		FROM order_comments
		WHERE order_id = $1
		ORDER BY timestamp`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*types.OrderComment
	for rows.Next() {
		var c types.OrderComment
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Comment, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}
	return comments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var o types.Order
	var physician, payment, groupID sql.NullString
	err := row.Scan(
		&o.ID,
		&o.PatientID,
		&o.TestID,
		&o.OrderDate,
		&o.Status,
		&physician,
		&payment,
		&o.Discount,
		&groupID,
	)
	if err != nil {
		return nil, err
	}
	o.ReferringPhysician = physician.String
	o.PaymentMethod = payment.String
	o.GroupID = groupID.String
	return &o, nil
}
