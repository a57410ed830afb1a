package patient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// pidFormat is the sequential patient identifier scheme
const pidFormat = "TRY%05d"

// Repository handles patient persistence. All PII columns (title, name,
// contact, address) are written and read as ciphertext; encryption lives in
// the service layer.
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a new patient repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// NextPID allocates the next identifier in the TRY00001 sequence. The
// numeric suffix of the highest existing PID seeds the counter, so the
// sequence survives deletions without reusing identifiers.
func (r *Repository) NextPID(ctx context.Context) (string, error) {
	query := `SELECT COALESCE(MAX(CAST(SUBSTRING(pid FROM 4) AS INTEGER)), 0) FROM patients`

	var max int
	if err := r.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return "", fmt.Errorf("failed to compute next pid: %w", err)
	}
	return fmt.Sprintf(pidFormat, max+1), nil
}

// Create inserts a new patient row
func (r *Repository) Create(ctx context.Context, p *types.Patient) (*types.Patient, error) {
	p.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO patients (title, pid, name, age, gender, contact, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		p.Title,
		p.PID,
		p.Name,
		p.Age,
		p.Gender,
		p.Contact,
		p.Address,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"patient_id": p.ID,
		"pid":        p.PID,
	}).Info("Created patient record")
	return p, nil
}

// Update replaces the mutable fields of a patient row. The PID and creation
// timestamp never change.
func (r *Repository) Update(ctx context.Context, p *types.Patient) error {
	query := `
		UPDATE patients
		SET title = $1, name = $2, age = $3, gender = $4, contact = $5, address = $6
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		p.Title,
		p.Name,
		p.Age,
		p.Gender,
		p.Contact,
		p.Address,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %d not found", p.ID))
	}
	return nil
}

// GetByID retrieves a patient row with ciphertext PII
func (r *Repository) GetByID(ctx context.Context, id int64) (*types.Patient, error) {
	query := `
		SELECT id, title, pid, name, age, gender, contact, address, created_at
		FROM patients
		WHERE id = $1`

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %d not found", id))
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// GetByPID retrieves a patient row by its display identifier. Restored
// snapshots can duplicate a PID, so the newest matching row wins.
func (r *Repository) GetByPID(ctx context.Context, pid string) (*types.Patient, error) {
	query := `
		SELECT id, title, pid, name, age, gender, contact, address, created_at
		FROM patients
		WHERE pid = $1
		ORDER BY id DESC
		LIMIT 1`

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, pid))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %s not found", pid))
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// List returns all patient rows newest first. Name search happens in the
// service after decryption; ciphertext columns cannot be matched in SQL.
func (r *Repository) List(ctx context.Context) ([]*types.Patient, error) {
	query := `
		SELECT id, title, pid, name, age, gender, contact, address, created_at
		FROM patients
		ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*types.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient rows: %w", err)
	}
	return patients, nil
}

// DeleteTx removes a patient row inside the caller's transaction. Orders,
// results and comments cascade at the schema level. The caller must have
// archived the aggregate first.
func (r *Repository) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*types.Patient, error) {
	var p types.Patient
	var title, contact, address sql.NullString
	err := row.Scan(
		&p.ID,
		&title,
		&p.PID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&contact,
		&address,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Title = title.String
	p.Contact = contact.String
	p.Address = address.String
	return &p, nil
}
