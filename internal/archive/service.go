package archive

import (
	"context"
	"database/sql"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/database"
	"github.com/Anandhalagan/LIMS/pkg/encryption"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/monitoring"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Auditor records destructive archive operations
type Auditor interface {
	Record(ctx context.Context, entry *types.AuditLogEntry) error
}

// EntrySummary is the archive listing row: entry metadata plus enough of
// the snapshot to identify the patient. The name decrypts through the
// typed field so a bad ciphertext still lists.
type EntrySummary struct {
	ID         int64                     `json:"id"`
	EntityType string                    `json:"entity_type"`
	EntityID   int64                     `json:"entity_id"`
	PID        string                    `json:"pid,omitempty"`
	Name       encryption.DecryptedField `json:"name"`
	Orders     int                       `json:"orders"`
	DeletedBy  *int64                    `json:"deleted_by,omitempty"`
	DeletedAt  time.Time                 `json:"deleted_at"`
}

// Service implements archive-before-delete, restore and purge
type Service struct {
	repo      *Repository
	db        *database.DB
	encryptor *encryption.Service
	auditor   Auditor
	logger    *logger.Logger
}

// NewService creates a new archive service
func NewService(repo *Repository, db *database.DB, encryptor *encryption.Service, auditor Auditor, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		db:        db,
		encryptor: encryptor,
		auditor:   auditor,
		logger:    log,
	}
}

// ArchivePatientTx snapshots a patient aggregate into archive_entries inside
// the caller's transaction. The caller deletes the live rows afterwards in
// the same transaction; nothing here commits.
func (s *Service) ArchivePatientTx(ctx context.Context, tx *sql.Tx, patientID int64, deletedBy *int64) (int64, error) {
	snap, err := loadAggregateTx(ctx, tx, patientID)
	if err != nil {
		return 0, err
	}

	data, err := snap.Marshal()
	if err != nil {
		return 0, err
	}

	entry := &types.ArchiveEntry{
		EntityType: types.ArchiveEntityPatient,
		EntityID:   patientID,
		DeletedBy:  deletedBy,
		DeletedAt:  time.Now().UTC(),
		Data:       data,
	}
	id, err := s.repo.InsertTx(ctx, tx, entry)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(map[string]interface{}{
		"patient_id":  patientID,
		"archive_id":  id,
		"orders":      len(snap.Orders),
		"data_sha256": encryption.HashData(data),
	}).Info("Archived patient aggregate")
	return id, nil
}

// RestorePatient reconstructs a patient aggregate from an archive entry.
// Every restored row gets a fresh primary key with foreign keys rebound,
// and the whole tree inserts in one transaction: a failure anywhere leaves
// the live tables untouched. The entry itself stays in the archive, so
// restoring twice yields two independent patients; operators purge the
// entry explicitly when they are done with it.
func (s *Service) RestorePatient(ctx context.Context, archiveID int64, actor *types.User) (*types.Patient, error) {
	entry, err := s.repo.GetByID(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	if entry.EntityType != types.ArchiveEntityPatient {
		monitoring.RecordArchiveOperation("restore", false)
		return nil, types.NewUnsupportedEntityError(entry.EntityType)
	}

	snap, err := UnmarshalSnapshot(entry.Data)
	if err != nil {
		monitoring.RecordArchiveOperation("restore", false)
		return nil, err
	}

	var restored *types.Patient
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		restored, err = insertAggregateTx(ctx, tx, snap)
		return err
	})

	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}
	s.logger.Audit(actorID, "archive.restore", types.ArchiveEntityPatient, entry.EntityID, err == nil)
	monitoring.RecordArchiveOperation("restore", err == nil)
	if err != nil {
		return nil, err
	}

	if s.auditor != nil && actor != nil {
		s.auditor.Record(ctx, &types.AuditLogEntry{
			UserID:     actorID,
			Action:     "archive.restore",
			EntityID:   restored.ID,
			EntityType: types.ArchiveEntityPatient,
			Timestamp:  time.Now().UTC(),
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"archive_id":     archiveID,
		"new_patient_id": restored.ID,
		"orders":         len(snap.Orders),
	}).Info("Restored patient aggregate")
	return restored, nil
}

// Purge permanently discards an archive entry. Admin-only; after this the
// snapshot cannot be recovered by any means.
func (s *Service) Purge(ctx context.Context, archiveID int64, actor *types.User) error {
	if actor == nil || !actor.IsAdmin() {
		return types.NewValidationError(types.ErrCodeValidationFailed, "only admins may purge archive entries", nil)
	}

	entry, err := s.repo.GetByID(ctx, archiveID)
	if err != nil {
		return err
	}

	err = s.repo.Delete(ctx, archiveID)
	s.logger.Audit(actor.ID, "archive.purge", entry.EntityType, entry.EntityID, err == nil)
	monitoring.RecordArchiveOperation("purge", err == nil)
	if err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, &types.AuditLogEntry{
			UserID:     actor.ID,
			Action:     "archive.purge",
			EntityID:   entry.EntityID,
			EntityType: entry.EntityType,
			Timestamp:  time.Now().UTC(),
		})
	}
	return nil
}

// List returns display summaries for archived patients. Snapshots that no
// longer parse still list, with a zero order count, so operators can see
// and purge them.
func (s *Service) List(ctx context.Context) ([]*EntrySummary, error) {
	entries, err := s.repo.List(ctx, types.ArchiveEntityPatient)
	if err != nil {
		return nil, err
	}

	summaries := make([]*EntrySummary, 0, len(entries))
	for _, entry := range entries {
		summary := &EntrySummary{
			ID:         entry.ID,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			DeletedBy:  entry.DeletedBy,
			DeletedAt:  entry.DeletedAt,
		}
		if snap, err := UnmarshalSnapshot(entry.Data); err == nil {
			summary.PID = snap.Patient.PID
			summary.Name = s.encryptor.DecryptField(snap.Patient.Name)
			summary.Orders = len(snap.Orders)
		} else {
			summary.Name = encryption.DecryptedField{Failed: true}
			s.logger.WithField("archive_id", entry.ID).Warn("Archived snapshot failed to parse")
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
