package encryption

import "encoding/json"

// FailedDisplay is what display layers show for a field whose ciphertext
// could not be decrypted.
const FailedDisplay = "Decryption Failed"

// DecryptedField is the result of decrypting one PII column. A failed
// decryption is a distinguishable state, not a magic string: callers can
// branch on Failed to escalate corrupted data while views fall back to the
// legacy display text.
type DecryptedField struct {
	Value  string
	Failed bool
}

// String renders the field for display
func (f DecryptedField) String() string {
	if f.Failed {
		return FailedDisplay
	}
	return f.Value
}

// MarshalJSON renders the display form
func (f DecryptedField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}
