package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Anandhalagan/LIMS/pkg/types"
)

// loadAggregateTx reads the full patient aggregate inside the caller's
// transaction so the snapshot sees exactly the rows the delete will remove.
func loadAggregateTx(ctx context.Context, tx *sql.Tx, patientID int64) (*PatientSnapshot, error) {
	var p types.Patient
	var title, contact, address sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT id, title, pid, name, age, gender, contact, address, created_at
		FROM patients
		WHERE id = $1`, patientID,
	).Scan(&p.ID, &title, &p.PID, &p.Name, &p.Age, &p.Gender, &contact, &address, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %d not found", patientID))
		}
		return nil, fmt.Errorf("failed to load patient for archive: %w", err)
	}
	p.Title = title.String
	p.Contact = contact.String
	p.Address = address.String

	orders, err := loadOrdersTx(ctx, tx, patientID)
	if err != nil {
		return nil, err
	}
	return &PatientSnapshot{Patient: p, Orders: orders}, nil
}

func loadOrdersTx(ctx context.Context, tx *sql.Tx, patientID int64) ([]OrderSnapshot, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, patient_id, test_id, order_date, status, referring_physician, payment_method, discount, group_id
		FROM orders
		WHERE patient_id = $1
		ORDER BY id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for archive: %w", err)
	}
	defer rows.Close()

	var orders []OrderSnapshot
	for rows.Next() {
		var o types.Order
		var physician, payment, groupID sql.NullString
		if err := rows.Scan(&o.ID, &o.PatientID, &o.TestID, &o.OrderDate, &o.Status,
			&physician, &payment, &o.Discount, &groupID); err != nil {
			return nil, fmt.Errorf("failed to scan order for archive: %w", err)
		}
		o.ReferringPhysician = physician.String
		o.PaymentMethod = payment.String
		o.GroupID = groupID.String
		orders = append(orders, OrderSnapshot{Order: o})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders for archive: %w", err)
	}

	for i := range orders {
		result, err := loadResultTx(ctx, tx, orders[i].Order.ID)
		if err != nil {
			return nil, err
		}
		orders[i].Result = result

		comments, err := loadCommentsTx(ctx, tx, orders[i].Order.ID)
		if err != nil {
			return nil, err
		}
		orders[i].Comments = comments
	}
	return orders, nil
}

func loadResultTx(ctx context.Context, tx *sql.Tx, orderID int64) (*types.Result, error) {
	var res types.Result
	var valuesJSON []byte
	var notes sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT id, order_id, result_date, results, notes
		FROM results
		WHERE order_id = $1`, orderID,
	).Scan(&res.ID, &res.OrderID, &res.ResultDate, &valuesJSON, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result for archive: %w", err)
	}
	res.Notes = notes.String
	if err := unmarshalValues(valuesJSON, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func loadCommentsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]types.OrderComment, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, order_id, comment, timestamp
		FROM order_comments
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments for archive: %w", err)
	}
	defer rows.Close()

	var comments []types.OrderComment
	for rows.Next() {
		var c types.OrderComment
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Comment, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan comment for archive: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments for archive: %w", err)
	}
	return comments, nil
}

// insertAggregateTx reconstructs the aggregate from a snapshot inside the
// caller's transaction. Every row gets a fresh primary key; foreign keys are
// rebound to the new identifiers as they are generated. The snapshot's own
// ids are never reused.
func insertAggregateTx(ctx context.Context, tx *sql.Tx, snap *PatientSnapshot) (*types.Patient, error) {
	restored := snap.Patient
	err := tx.QueryRowContext(ctx, `
		INSERT INTO patients (title, pid, name, age, gender, contact, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		restored.Title,
		restored.PID,
		restored.Name,
		restored.Age,
		restored.Gender,
		restored.Contact,
		restored.Address,
		restored.CreatedAt,
	).Scan(&restored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore patient: %w", err)
	}

	for _, os := range snap.Orders {
		o := os.Order
		o.PatientID = restored.ID
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
			return nil, fmt.Errorf("failed to restore order: %w", err)
		}

		if os.Result != nil {
			valuesJSON, err := marshalValues(os.Result)
			if err != nil {
				return nil, err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO results (order_id, result_date, results, notes)
				VALUES ($1, $2, $3, $4)`,
				o.ID, os.Result.ResultDate, valuesJSON, os.Result.Notes,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to restore result: %w", err)
			}
		}

		for _, c := range os.Comments {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_comments (order_id, comment, timestamp)
				VALUES ($1, $2, $3)`,
				o.ID, c.Comment, c.Timestamp,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to restore comment: %w", err)
			}
		}
	}
	return &restored, nil
}
