package model

import "time"

type MandateStatus string

const (
	MandateStatusActive   MandateStatus = "active"
	MandateStatusInactive MandateStatus = "inactive"
	MandateStatusRevoked  MandateStatus = "revoked"
)

// Mandate is a recurring-consent record. It resolves either through a
// card-network transaction id or through connector-specific mandate
// references, never both at once.
type Mandate struct {
	MandateID            string
	MerchantID           string
	CustomerID           string
	PaymentMethodID      string
	Status               MandateStatus
	NetworkTransactionID string
	// ConnectorMandateIDs maps connector name to the reference that
	// connector issued for this consent.
	ConnectorMandateIDs map[string]string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MandateReferenceID is the resolved form handed to the adapter: exactly one
// of the two fields is set.
type MandateReferenceID struct {
	NetworkTransactionID string
	ConnectorMandateID   string
}

// Resolve picks the reference for the given connector, preferring the
// network transaction id when present.
func (m *Mandate) Resolve(connector string) (MandateReferenceID, bool) {
	if m.NetworkTransactionID != "" {
		return MandateReferenceID{NetworkTransactionID: m.NetworkTransactionID}, true
	}
	if id, ok := m.ConnectorMandateIDs[connector]; ok {
		return MandateReferenceID{ConnectorMandateID: id}, true
	}
	return MandateReferenceID{}, false
}
