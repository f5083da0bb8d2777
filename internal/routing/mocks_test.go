// File: internal/routing/mocks_test.go
package routing

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// memConfigRepo is a small in-memory config store used by unit tests.
type memConfigRepo struct {
	mu      sync.RWMutex
	store   map[string]string
	inserts int
	findErr error
}

func newMemConfigRepo() *memConfigRepo {
	return &memConfigRepo{store: make(map[string]string)}
}

func (m *memConfigRepo) Find(ctx context.Context, key string) (string, error) {
	if m.findErr != nil {
		return "", m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memConfigRepo) Insert(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[key]; ok {
		return domain.ErrAlreadyExists
	}
	m.store[key] = value
	m.inserts++
	return nil
}

func (m *memConfigRepo) Update(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

// memMCARepo serves connector accounts from a fixed slice.
type memMCARepo struct {
	accounts []*model.MerchantConnectorAccount
}

func (m *memMCARepo) ListByMerchantID(ctx context.Context, merchantID string) ([]*model.MerchantConnectorAccount, error) {
	var out []*model.MerchantConnectorAccount
	for _, mca := range m.accounts {
		if mca.MerchantID == merchantID {
			out = append(out, mca)
		}
	}
	return out, nil
}

func (m *memMCARepo) FindByMerchantIDConnectorName(ctx context.Context, merchantID, profileID, connectorName string) (*model.MerchantConnectorAccount, error) {
	for _, mca := range m.accounts {
		if mca.MerchantID == merchantID && mca.ProfileID == profileID && mca.ConnectorName == connectorName {
			return mca, nil
		}
	}
	return nil, domain.ErrNotFound
}

// mapCache is a plain map behind the ConfigCache contract, with counters so
// tests can assert read-through behavior.
type mapCache struct {
	store map[string]string
	hits  int
	sets  int
}

func newMapCache() *mapCache {
	return &mapCache{store: make(map[string]string)}
}

func (c *mapCache) Get(ctx context.Context, key string) (string, bool) {
	v, ok := c.store[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key, value string) {
	c.store[key] = value
	c.sets++
}

func (c *mapCache) Invalidate(ctx context.Context, key string) {
	delete(c.store, key)
}
