package model

import "time"

// Customer is the merchant-scoped payer identity.
type Customer struct {
	CustomerID string
	MerchantID string
	Name       string
	Email      string
	Phone      string
	CreatedAt  time.Time
}

// Address is a stored billing or shipping address, referenced from an
// Intent by id.
type Address struct {
	AddressID  string
	MerchantID string
	CustomerID string
	PaymentID  string
	Line1      string
	Line2      string
	City       string
	State      string
	Zip        string
	Country    string
	FirstName  string
	LastName   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MerchantAccount carries the merchant-level flags the pipeline threads
// through every Store call.
type MerchantAccount struct {
	MerchantID              string
	StorageScheme           StorageScheme
	ConnectorAgnosticMIT    bool
	DefaultProfileID        string
	CreatedAt               time.Time
}

// MerchantConnectorAccount is one configured (merchant, connector) pairing,
// scoped to a business profile. Routing validation only accepts connectors
// that appear here and are not disabled.
type MerchantConnectorAccount struct {
	MerchantConnectorID string
	MerchantID          string
	ProfileID           string
	ConnectorName       string
	Disabled            bool
	// AuthConfig is the credential snapshot handed to the adapter; it is
	// passed explicitly so adapter calls stay deterministic and replayable.
	AuthConfig          map[string]string
	WebhookSecret       string
	CreatedAt           time.Time
}

// ConnectorEnabled reports whether the account may be routed to.
func (mca *MerchantConnectorAccount) ConnectorEnabled() bool {
	return !mca.Disabled
}
