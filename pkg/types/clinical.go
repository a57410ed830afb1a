package types

import (
	"encoding/json"
	"time"
)

// Order lifecycle statuses
const (
	OrderStatusPending   = "Pending"
	OrderStatusCompleted = "Completed"
)

// Archive entity types. Only patients are archived today; the constant keeps
// entity_type comparisons in one place.
const (
	ArchiveEntityPatient = "patient"
)

// Patient is a registered subject. The title, name, contact and address
// columns hold ciphertext as stored; decryption happens in the patient
// service through the injected encryption service.
type Patient struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title,omitempty"`
	PID       string    `json:"pid"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	Contact   string    `json:"contact,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LabTest is a catalog entry: code, pricing and the result-entry template
type LabTest struct {
	ID         int64        `json:"id"`
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Department string       `json:"department,omitempty"`
	RateINR    float64      `json:"rate_inr"`
	Template   TestTemplate `json:"template,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

// Order links a patient to a test. Orders placed together share a GroupID.
type Order struct {
	ID                 int64     `json:"id"`
	PatientID          int64     `json:"patient_id"`
	TestID             int64     `json:"test_id"`
	OrderDate          time.Time `json:"order_date"`
	Status             string    `json:"status"`
	ReferringPhysician string    `json:"referring_physician,omitempty"`
	PaymentMethod      string    `json:"payment_method,omitempty"`
	Discount           float64   `json:"discount"`
	GroupID            string    `json:"group_id,omitempty"`
}

// Result is the one-to-one result set for an order. Values maps template
// field names to entered or derived values (numbers or free text).
type Result struct {
	ID         int64                  `json:"id"`
	OrderID    int64                  `json:"order_id"`
	ResultDate time.Time              `json:"result_date"`
	Values     map[string]interface{} `json:"results"`
	Notes      string                 `json:"notes,omitempty"`
}

// OrderComment is a free-text remark attached to an order
type OrderComment struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// ArchiveEntry is a durable snapshot of a deleted aggregate. Data holds the
// JSON payload and is the sole source of truth for recovery; there is no
// live foreign key back to the deleted rows.
type ArchiveEntry struct {
	ID         int64           `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	DeletedBy  *int64          `json:"deleted_by,omitempty"`
	DeletedAt  time.Time       `json:"deleted_at"`
	Data       json.RawMessage `json:"data"`
}

// AuditLogEntry records a user action against an entity
type AuditLogEntry struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Action     string    `json:"action"`
	EntityID   int64     `json:"entity_id"`
	EntityType string    `json:"entity_type"`
	Timestamp  time.Time `json:"timestamp"`
	Details    string    `json:"details,omitempty"`
}

// Invoice is the computed bill for one order group
type Invoice struct {
	PatientID      int64         `json:"patient_id"`
	GroupID        string        `json:"group_id,omitempty"`
	Lines          []InvoiceLine `json:"lines"`
	BillAmount     float64       `json:"bill_amount"`
	DiscountPct    float64       `json:"discount_percent"`
	DiscountAmount float64       `json:"discount_amount"`
	FinalAmount    float64       `json:"final_amount"`
	Receipts       []string      `json:"receipts,omitempty"`
}

// InvoiceLine is one billed test
type InvoiceLine struct {
	TestCode string  `json:"test_code"`
	TestName string  `json:"test_name"`
	Amount   float64 `json:"amount"`
}
