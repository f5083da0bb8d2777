package model

import "time"

// MandateReferenceRecord is one connector's active mandate bookkeeping for a
// stored instrument: the connector-issued mandate id plus the amount and
// currency that were originally authorized.
type MandateReferenceRecord struct {
	ConnectorMandateID string            `json:"connector_mandate_id"`
	PaymentMethodType  PaymentMethodType `json:"payment_method_type,omitempty"`
	AuthorizedAmount   int64             `json:"original_payment_authorized_amount"`
	AuthorizedCurrency string            `json:"original_payment_authorized_currency"`
}

// MandateReferenceMap is keyed by merchant_connector_id so a customer can
// hold concurrently active mandates across multiple processors. Updating one
// key never touches another connector's entry.
type MandateReferenceMap map[string]MandateReferenceRecord

// Upsert replaces only the record for the given merchant-connector account.
func (m MandateReferenceMap) Upsert(merchantConnectorID string, rec MandateReferenceRecord) {
	m[merchantConnectorID] = rec
}

// PaymentMethod is a customer's stored instrument. Raw instrument data lives
// in the external vault; this record only holds references and non-sensitive
// display metadata.
type PaymentMethod struct {
	PaymentMethodID   string
	MerchantID        string
	CustomerID        string
	LockerID          string // vault-assigned id, empty when vaulting is disabled
	PaymentMethod     PaymentMethodType
	SavedToLocker     bool
	SingleUseToken    bool // connector token must not be reused across attempts
	NetworkTxnID      string
	MandateReferences MandateReferenceMap
	// Metadata carries connector tokens and instrument display details
	// (last4, expiry). Patched in place when a connector reissues a token.
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConnectorToken returns the stored token for a connector, if any.
func (pm *PaymentMethod) ConnectorToken(connector string) (string, bool) {
	tok, ok := pm.Metadata[connector]
	return tok, ok
}
