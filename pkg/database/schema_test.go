package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Restore re-inserts the archived PID verbatim, and the same snapshot may
// be restored more than once, so two live rows can legitimately share a
// PID. A unique constraint on the column would abort the second restore.
func TestPatientsPIDColumnAllowsDuplicates(t *testing.T) {
	assert.Contains(t, createPatientsTable, "pid VARCHAR(20),")
	assert.NotContains(t, createPatientsTable, "pid VARCHAR(20) UNIQUE")

	// Lookup stays indexed even without the constraint.
	assert.Contains(t, createPatientsIndexes, "idx_patients_pid")
}
