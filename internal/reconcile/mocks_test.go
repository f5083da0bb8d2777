// File: internal/reconcile/mocks_test.go
package reconcile

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// memPaymentMethodRepo is an in-memory instrument store for unit tests.
type memPaymentMethodRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.PaymentMethod
	insertErr error
}

func newMemPaymentMethodRepo() *memPaymentMethodRepo {
	return &memPaymentMethodRepo{store: make(map[string]*model.PaymentMethod)}
}

func (m *memPaymentMethodRepo) Insert(ctx context.Context, pm *model.PaymentMethod, _ model.StorageScheme) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pm
	m.store[pm.PaymentMethodID] = &cp
	return nil
}

func (m *memPaymentMethodRepo) FindByID(ctx context.Context, id string, _ model.StorageScheme) (*model.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pm
	return &cp, nil
}

func (m *memPaymentMethodRepo) FindByLockerID(ctx context.Context, lockerID string, _ model.StorageScheme) (*model.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pm := range m.store {
		if pm.LockerID == lockerID {
			cp := *pm
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentMethodRepo) FindByCustomer(ctx context.Context, merchantID, customerID string, _ model.StorageScheme) ([]*model.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentMethod
	for _, pm := range m.store {
		if pm.MerchantID == merchantID && pm.CustomerID == customerID {
			cp := *pm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentMethodRepo) UpdateMetadata(ctx context.Context, id string, metadata map[string]string, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	pm.Metadata = metadata
	return nil
}

func (m *memPaymentMethodRepo) UpdateMandateReferences(ctx context.Context, id string, refs model.MandateReferenceMap, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	pm.MandateReferences = refs
	return nil
}

func (m *memPaymentMethodRepo) DeleteByMerchantIDPaymentMethodID(ctx context.Context, merchantID, id string, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.store[id]
	if !ok || pm.MerchantID != merchantID {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memPaymentMethodRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

func (m *memPaymentMethodRepo) any() *model.PaymentMethod {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pm := range m.store {
		cp := *pm
		return &cp
	}
	return nil
}

// mockVault scripts the external locker's verdicts and failures.
type mockVault struct {
	saveResult adapter.SaveResult
	saveErr    error
	saveAtErr  error
	deleteErr  error

	saves   int
	resaves int
	deletes int
}

func (v *mockVault) Save(ctx context.Context, merchantID string, details adapter.InstrumentDetails) (adapter.SaveResult, error) {
	v.saves++
	if v.saveErr != nil {
		return adapter.SaveResult{}, v.saveErr
	}
	return v.saveResult, nil
}

func (v *mockVault) SaveAt(ctx context.Context, merchantID, vaultID string, details adapter.InstrumentDetails) (adapter.SaveResult, error) {
	v.resaves++
	if v.saveAtErr != nil {
		return adapter.SaveResult{}, v.saveAtErr
	}
	return adapter.SaveResult{VaultID: vaultID}, nil
}

func (v *mockVault) Delete(ctx context.Context, merchantID, customerID, vaultID string) error {
	v.deletes++
	return v.deleteErr
}
