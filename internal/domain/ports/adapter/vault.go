package adapter

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

// DuplicationCheck is the vault's verdict on a save: the instrument was new,
// an exact duplicate, or a duplicate whose metadata (expiry, holder name)
// changed and must be re-saved.
type DuplicationCheck string

const (
	DuplicationNone            DuplicationCheck = ""
	DuplicationDuplicated      DuplicationCheck = "duplicated"
	DuplicationMetaDataChanged DuplicationCheck = "metadata_changed"
)

// InstrumentDetails is the raw instrument payload sent to the vault. It
// never touches our own Store.
type InstrumentDetails struct {
	CustomerID  string
	Method      model.PaymentMethodType
	CardNumber  string
	ExpiryMonth string
	ExpiryYear  string
	HolderName  string
	NickName    string
}

// SaveResult is the vault's answer to a save call.
type SaveResult struct {
	// VaultID is the vault-assigned instrument id. On a duplicate it is
	// the id of the already-stored instrument.
	VaultID     string
	Duplication DuplicationCheck
	Last4       string
}

// Vault is the external secure storage ("locker") for raw instrument data.
type Vault interface {
	Save(ctx context.Context, merchantID string, details InstrumentDetails) (SaveResult, error)
	// SaveAt re-saves updated details under an existing vault id.
	SaveAt(ctx context.Context, merchantID, vaultID string, details InstrumentDetails) (SaveResult, error)
	Delete(ctx context.Context, merchantID, customerID, vaultID string) error
}
