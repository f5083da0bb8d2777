package repository

import "context"

// ConfigRepository is the JSON-blob config store backing routing
// dictionaries and default connector lists. Keys are derived strings
// namespaced by merchant id and transaction type.
type ConfigRepository interface {
	// Find returns domain.ErrNotFound when the key has never been written.
	Find(ctx context.Context, key string) (string, error)
	Insert(ctx context.Context, key, value string) error
	Update(ctx context.Context, key, value string) error
}
