// File: internal/routing/engine.go
package routing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
)

// ConfigCache is a read-through cache in front of the config store. The
// redis implementation lives in internal/infra/redis; tests use a map.
type ConfigCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Invalidate(ctx context.Context, key string)
}

// Engine owns per-merchant routing dictionaries and default fallback lists
// and resolves connector choices from the configured algorithm.
type Engine struct {
	configs repository.ConfigRepository
	mcas    repository.MerchantConnectorRepository
	cache   ConfigCache
	log     *zerolog.Logger
}

func NewEngine(configs repository.ConfigRepository, mcas repository.MerchantConnectorRepository, cache ConfigCache, logger *zerolog.Logger) *Engine {
	return &Engine{configs: configs, mcas: mcas, cache: cache, log: logger}
}

// Dictionary returns the merchant's routing dictionary. The first read for
// an unknown merchant idempotently creates an empty dictionary and persists
// it before returning.
func (e *Engine) Dictionary(ctx context.Context, merchantID string) (*model.RoutingDictionary, error) {
	key := DictionaryKey(merchantID)

	if raw, ok := e.cacheGet(ctx, key); ok {
		var dict model.RoutingDictionary
		if err := json.Unmarshal([]byte(raw), &dict); err == nil {
			return &dict, nil
		}
		// A bad cache entry is dropped, not fatal.
		e.cacheInvalidate(ctx, key)
	}

	raw, err := e.configs.Find(ctx, key)
	switch {
	case err == nil:
		var dict model.RoutingDictionary
		if err := json.Unmarshal([]byte(raw), &dict); err != nil {
			return nil, fmt.Errorf("routing dictionary for %s has invalid structure: %w", merchantID, err)
		}
		e.cacheSet(ctx, key, raw)
		return &dict, nil

	case domain.IsNotFound(err):
		dict := model.RoutingDictionary{MerchantID: merchantID, Records: []model.RoutingRecord{}}
		serialized, err := json.Marshal(dict)
		if err != nil {
			return nil, fmt.Errorf("serialize new routing dictionary: %w", err)
		}
		if err := e.configs.Insert(ctx, key, string(serialized)); err != nil {
			return nil, fmt.Errorf("insert new routing dictionary for %s: %w", merchantID, err)
		}
		e.cacheSet(ctx, key, string(serialized))
		return &dict, nil

	default:
		return nil, fmt.Errorf("fetch routing dictionary for %s: %w", merchantID, err)
	}
}

// DefaultConfig returns the merchant's default connector fallback list for
// the transaction type, creating an empty one on first read.
func (e *Engine) DefaultConfig(ctx context.Context, merchantID string, txType model.TransactionType) ([]model.ConnectorChoice, error) {
	key := DefaultConfigKey(merchantID, txType)

	if raw, ok := e.cacheGet(ctx, key); ok {
		var list []model.ConnectorChoice
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list, nil
		}
		e.cacheInvalidate(ctx, key)
	}

	raw, err := e.configs.Find(ctx, key)
	switch {
	case err == nil:
		var list []model.ConnectorChoice
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("default config for %s has invalid structure: %w", merchantID, err)
		}
		e.cacheSet(ctx, key, raw)
		return list, nil

	case domain.IsNotFound(err):
		list := []model.ConnectorChoice{}
		serialized, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("serialize new default config: %w", err)
		}
		if err := e.configs.Insert(ctx, key, string(serialized)); err != nil {
			return nil, fmt.Errorf("insert new default config for %s: %w", merchantID, err)
		}
		e.cacheSet(ctx, key, string(serialized))
		return list, nil

	default:
		return nil, fmt.Errorf("fetch default config for %s: %w", merchantID, err)
	}
}

// UpdateDictionary persists the whole dictionary and drops the cache entry.
func (e *Engine) UpdateDictionary(ctx context.Context, dict model.RoutingDictionary) error {
	key := DictionaryKey(dict.MerchantID)
	serialized, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("serialize routing dictionary: %w", err)
	}
	if err := e.configs.Update(ctx, key, string(serialized)); err != nil {
		return fmt.Errorf("save routing dictionary: %w", err)
	}
	e.cacheInvalidate(ctx, key)
	return nil
}

// UpdateDefaultConfig replaces the default connector list for a transaction type.
func (e *Engine) UpdateDefaultConfig(ctx context.Context, merchantID string, connectors []model.ConnectorChoice, txType model.TransactionType) error {
	key := DefaultConfigKey(merchantID, txType)
	serialized, err := json.Marshal(connectors)
	if err != nil {
		return fmt.Errorf("serialize default config: %w", err)
	}
	if err := e.configs.Update(ctx, key, string(serialized)); err != nil {
		return fmt.Errorf("save default config: %w", err)
	}
	e.cacheInvalidate(ctx, key)
	return nil
}

func (e *Engine) cacheGet(ctx context.Context, key string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	return e.cache.Get(ctx, key)
}

func (e *Engine) cacheSet(ctx context.Context, key, value string) {
	if e.cache != nil {
		e.cache.Set(ctx, key, value)
	}
}

func (e *Engine) cacheInvalidate(ctx context.Context, key string) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, key)
	}
}
