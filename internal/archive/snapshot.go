package archive

import (
	"encoding/json"

	"github.com/Anandhalagan/LIMS/pkg/types"
)

// PatientSnapshot is the archived form of a patient aggregate. PII fields
// are carried exactly as stored, ciphertext included, so archiving never
// requires a decryption pass and snapshots never leak plaintext.
type PatientSnapshot struct {
	Patient types.Patient   `json:"patient"`
	Orders  []OrderSnapshot `json:"orders"`
}

// OrderSnapshot is one order with its optional result and comments
type OrderSnapshot struct {
	Order    types.Order          `json:"order"`
	Result   *types.Result        `json:"result,omitempty"`
	Comments []types.OrderComment `json:"comments,omitempty"`
}

// Marshal serializes a snapshot for the archive_entries data column
func (s *PatientSnapshot) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, types.NewSerializationError("failed to serialize patient snapshot", err)
	}
	return data, nil
}

// UnmarshalSnapshot parses an archived payload. A payload that no longer
// parses is irrecoverable; the typed error lets callers distinguish that
// from transient failures.
func UnmarshalSnapshot(data json.RawMessage) (*PatientSnapshot, error) {
	var s PatientSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, types.NewSerializationError("archived snapshot is not recoverable", err)
	}
	return &s, nil
}
