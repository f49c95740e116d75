package storage

import "time"

type StateEntry struct {
	ClientID  string
	Key       string
	Value     string
	UpdatedAt time.Time
}

const (
	ContactPending   = "pending"
	ContactDelivered = "delivered"
	ContactFailed    = "failed"
)

// ContactRequest is an outbox row. The form content is stored encrypted in
// EncPayload and only the delivery integration decrypts it.
type ContactRequest struct {
	ID          int64
	ClientID    string
	VendorID    string
	VendorEmail string
	EncPayload  string
	Status      string
	CreatedAt   time.Time
}

type AuditEntry struct {
	ClientID string
	Action   string
	MetaJSON string
}
