package routing

import (
	"fmt"

	"payment-orchestration-core/internal/domain/model"
)

// Config keys are namespaced by merchant id and transaction type so no two
// merchants or transaction types ever collide on the same blob.

// DictionaryKey identifies the merchant's routing dictionary.
func DictionaryKey(merchantID string) string {
	return fmt.Sprintf("routing_dict_%s", merchantID)
}

// DefaultConfigKey identifies the merchant's fallback connector list for a
// transaction type.
func DefaultConfigKey(merchantID string, txType model.TransactionType) string {
	if txType == model.TransactionTypePayout {
		return fmt.Sprintf("routing_default_po_%s", merchantID)
	}
	return fmt.Sprintf("routing_default_%s", merchantID)
}
