package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Repository handles lab test catalog persistence
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a new catalog repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// Create inserts a new catalog entry
func (r *Repository) Create(ctx context.Context, test *types.LabTest) (*types.LabTest, error) {
	templateJSON, err := marshalTemplate(test.Template)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tests (code, name, department, rate_inr, template, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err = r.db.QueryRowContext(ctx, query,
		test.Code,
		test.Name,
		test.Department,
		test.RateINR,
		templateJSON,
		test.Notes,
	).Scan(&test.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.NewConflictError(types.ErrCodeConflict,
				fmt.Sprintf("test code %q already exists", test.Code))
		}
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"test_id": test.ID,
		"code":    test.Code,
	}).Info("Created catalog entry")
	return test, nil
}

// Update replaces a catalog entry
func (r *Repository) Update(ctx context.Context, test *types.LabTest) error {
	templateJSON, err := marshalTemplate(test.Template)
	if err != nil {
		return err
	}

	query := `
		UPDATE tests
		SET code = $1, name = $2, department = $3, rate_inr = $4, template = $5, notes = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		test.Code,
		test.Name,
		test.Department,
		test.RateINR,
		templateJSON,
		test.Notes,
		test.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewConflictError(types.ErrCodeConflict,
				fmt.Sprintf("test code %q already exists", test.Code))
		}
		return fmt.Errorf("failed to update test: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("test %d not found", test.ID))
	}
	return nil
}

// GetByID retrieves a catalog entry by primary key
func (r *Repository) GetByID(ctx context.Context, id int64) (*types.LabTest, error) {
	return r.getOne(ctx, `
		SELECT id, code, name, department, rate_inr, template, notes
		FROM tests
		WHERE id = $1`, id)
}

// GetByCode retrieves a catalog entry by its unique test code
func (r *Repository) GetByCode(ctx context.Context, code string) (*types.LabTest, error) {
	return r.getOne(ctx, `
		SELECT id, code, name, department, rate_inr, template, notes
		FROM tests
		WHERE code = $1`, code)
}

func (r *Repository) getOne(ctx context.Context, query string, arg interface{}) (*types.LabTest, error) {
	var test types.LabTest
	var templateJSON []byte
	var department, notes sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&test.ID,
		&test.Code,
		&test.Name,
		&department,
		&test.RateINR,
		&templateJSON,
		&notes,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("test %v not found", arg))
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	test.Department = department.String
	test.Notes = notes.String
	if err := unmarshalTemplate(templateJSON, &test.Template); err != nil {
		return nil, err
	}
	return &test, nil
}

// List returns the full catalog ordered by code, optionally filtered by a
// case-insensitive substring match on code or name.
func (r *Repository) List(ctx context.Context, search string) ([]*types.LabTest, error) {
	query := `
		SELECT id, code, name, department, rate_inr, template, notes
		FROM tests`
	args := []interface{}{}

	if search != "" {
		query += " WHERE code ILIKE $1 OR name ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*types.LabTest
	for rows.Next() {
		var test types.LabTest
		var templateJSON []byte
		var department, notes sql.NullString
		if err := rows.Scan(
			&test.ID,
			&test.Code,
			&test.Name,
			&department,
			&test.RateINR,
			&templateJSON,
			&notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan test row: %w", err)
		}
		test.Department = department.String
		test.Notes = notes.String
		if err := unmarshalTemplate(templateJSON, &test.Template); err != nil {
			return nil, err
		}
		tests = append(tests, &test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test rows: %w", err)
	}
	return tests, nil
}

// Delete removes a catalog entry. Orders referencing it cascade at the
// schema level, so callers confirm before invoking this.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("test %d not found", id))
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func marshalTemplate(t types.TestTemplate) ([]byte, error) {
	if len(t) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, types.NewSerializationError("failed to marshal template", err)
	}
	return data, nil
}

func unmarshalTemplate(data []byte, t *types.TestTemplate) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, t); err != nil {
		return types.NewSerializationError("failed to unmarshal template", err)
	}
	return nil
}
