package patient

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/database"
	"github.com/Anandhalagan/LIMS/pkg/encryption"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/monitoring"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Archiver snapshots a patient aggregate inside the caller's transaction.
// The archive package provides the implementation; the indirection keeps
// patient deletion decoupled from snapshot layout.
type Archiver interface {
	ArchivePatientTx(ctx context.Context, tx *sql.Tx, patientID int64, deletedBy *int64) (int64, error)
}

// Auditor records destructive operations
type Auditor interface {
	Record(ctx context.Context, entry *types.AuditLogEntry) error
}

// Input carries plaintext registration or update fields
type Input struct {
	Title   string `json:"title"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

// View is the decrypted projection of a patient row. PII fields carry their
// decryption state so a bad ciphertext renders as "Decryption Failed"
// instead of aborting the whole listing.
type View struct {
	ID        int64                     `json:"id"`
	PID       string                    `json:"pid"`
	Title     encryption.DecryptedField `json:"title"`
	Name      encryption.DecryptedField `json:"name"`
	Age       int                       `json:"age"`
	Gender    string                    `json:"gender"`
	Contact   encryption.DecryptedField `json:"contact"`
	Address   encryption.DecryptedField `json:"address"`
	CreatedAt time.Time                 `json:"created_at"`
}

// Service implements the patient registry
type Service struct {
	repo      *Repository
	db        *database.DB
	encryptor *encryption.Service
	archiver  Archiver
	auditor   Auditor
	logger    *logger.Logger
}

// NewService creates a new patient service
func NewService(repo *Repository, db *database.DB, encryptor *encryption.Service, archiver Archiver, auditor Auditor, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		db:        db,
		encryptor: encryptor,
		archiver:  archiver,
		auditor:   auditor,
		logger:    log,
	}
}

// Register encrypts the PII fields, allocates the next PID and stores the
// patient.
func (s *Service) Register(ctx context.Context, input *Input) (*View, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	pid, err := s.repo.NextPID(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.encrypt(input)
	if err != nil {
		return nil, err
	}
	record.PID = pid

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return s.view(created), nil
}

// Update re-encrypts and replaces a patient's mutable fields
func (s *Service) Update(ctx context.Context, id int64, input *Input) (*View, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	record, err := s.encrypt(input)
	if err != nil {
		return nil, err
	}
	record.ID = existing.ID
	record.PID = existing.PID
	record.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return s.view(record), nil
}

// Get returns the decrypted view of one patient
func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(p), nil
}

// GetRecord returns the stored row with ciphertext columns intact. The
// archive path uses this form so snapshots never contain plaintext PII.
func (s *Service) GetRecord(ctx context.Context, id int64) (*types.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Search lists patients matching the query against PID or decrypted name,
// case-insensitively. An empty query returns everyone. Ciphertext columns
// cannot be filtered in SQL, so matching happens after decryption.
func (s *Service) Search(ctx context.Context, query string) ([]*View, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	views := make([]*View, 0, len(patients))
	for _, p := range patients {
		v := s.view(p)
		if needle == "" ||
			strings.Contains(strings.ToLower(v.PID), needle) ||
			strings.Contains(strings.ToLower(v.Name.String()), needle) {
			views = append(views, v)
		}
	}
	return views, nil
}

// Delete archives the patient aggregate and removes the live rows in a
// single transaction. Only admins may delete; the snapshot insert and the
// row deletion commit or roll back together, so the aggregate is never gone
// without a recoverable copy.
func (s *Service) Delete(ctx context.Context, id int64, actor *types.User) error {
	if actor == nil || !actor.IsAdmin() {
		return types.NewValidationError(types.ErrCodeValidationFailed, "only admins may delete patients", nil)
	}

	var archiveID int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		deletedBy := &actor.ID
		var err error
		archiveID, err = s.archiver.ArchivePatientTx(ctx, tx, id, deletedBy)
		if err != nil {
			return err
		}
		return s.repo.DeleteTx(ctx, tx, id)
	})

	s.logger.Audit(actor.ID, "patient.delete", types.ArchiveEntityPatient, id, err == nil)
	monitoring.RecordArchiveOperation("archive", err == nil)
	if err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, &types.AuditLogEntry{
			UserID:     actor.ID,
			Action:     "patient.delete",
			EntityID:   id,
			EntityType: types.ArchiveEntityPatient,
			Timestamp:  time.Now().UTC(),
		})
	}

	s.logger.WithUserID(actor.ID).WithFields(map[string]interface{}{
		"patient_id": id,
		"archive_id": archiveID,
	}).Info("Patient archived and deleted")
	return nil
}

func (s *Service) validate(input *Input) error {
	if strings.TrimSpace(input.Name) == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "patient name is required", nil)
	}
	if input.Age < 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "patient age must not be negative", nil)
	}
	return nil
}

func (s *Service) encrypt(input *Input) (*types.Patient, error) {
	p := &types.Patient{
		Age:    input.Age,
		Gender: input.Gender,
	}

	fields := []struct {
		plaintext string
		dest      *string
	}{
		{input.Title, &p.Title},
		{input.Name, &p.Name},
		{input.Contact, &p.Contact},
		{input.Address, &p.Address},
	}
	for _, f := range fields {
		ciphertext, err := s.encryptor.EncryptString(f.plaintext)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to encrypt patient field", err)
		}
		*f.dest = ciphertext
	}
	return p, nil
}

func (s *Service) view(p *types.Patient) *View {
	v := &View{
		ID:        p.ID,
		PID:       p.PID,
		Title:     s.decryptField(p.ID, p.Title),
		Name:      s.decryptField(p.ID, p.Name),
		Age:       p.Age,
		Gender:    p.Gender,
		Contact:   s.decryptField(p.ID, p.Contact),
		Address:   s.decryptField(p.ID, p.Address),
		CreatedAt: p.CreatedAt,
	}
	return v
}

func (s *Service) decryptField(patientID int64, ciphertext string) encryption.DecryptedField {
	field := s.encryptor.DecryptField(ciphertext)
	if field.Failed {
		monitoring.RecordDecryptFailure()
		s.logger.WithField("patient_id", patientID).Warn("Failed to decrypt patient field")
	}
	return field
}
