// File: internal/pipeline/mocks_test.go
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/config"
	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/reconcile"
	"payment-orchestration-core/internal/routing"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- in-memory repositories ----

type memIntentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Intent // keyed merchantID/paymentID
}

func newMemIntentRepo() *memIntentRepo {
	return &memIntentRepo{store: make(map[string]*model.Intent)}
}

func intentKey(merchantID, paymentID string) string { return merchantID + "/" + paymentID }

func (m *memIntentRepo) Insert(ctx context.Context, intent *model.Intent, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := intentKey(intent.MerchantID, intent.ID)
	if _, ok := m.store[key]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *intent
	m.store[key] = &cp
	return nil
}

func (m *memIntentRepo) FindByPaymentIDMerchantID(ctx context.Context, paymentID, merchantID string, _ model.StorageScheme) (*model.Intent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	intent, ok := m.store[intentKey(merchantID, paymentID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (m *memIntentRepo) Update(ctx context.Context, paymentID, merchantID string, update repository.IntentUpdate, _ model.StorageScheme) (*model.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.store[intentKey(merchantID, paymentID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Amount != nil {
		intent.Amount = *update.Amount
	}
	if update.Currency != nil {
		intent.Currency = *update.Currency
	}
	if update.Status != nil {
		intent.Status = *update.Status
	}
	if update.SetupFutureUsage != nil {
		intent.SetupFutureUsage = *update.SetupFutureUsage
	}
	if update.CustomerID != nil {
		intent.CustomerID = *update.CustomerID
	}
	if update.ActiveAttemptID != nil {
		intent.ActiveAttemptID = *update.ActiveAttemptID
	}
	if update.ShippingAddress != nil {
		intent.ShippingAddressID = *update.ShippingAddress
	}
	if update.BillingAddress != nil {
		intent.BillingAddressID = *update.BillingAddress
	}
	if update.Description != nil {
		intent.Description = *update.Description
	}
	if update.ReturnURL != nil {
		intent.ReturnURL = *update.ReturnURL
	}
	if update.Metadata != nil {
		intent.Metadata = update.Metadata
	}
	cp := *intent
	return &cp, nil
}

type memAttemptRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Attempt // keyed merchantID/paymentID/attemptID
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{store: make(map[string]*model.Attempt)}
}

func attemptKey(merchantID, paymentID, attemptID string) string {
	return merchantID + "/" + paymentID + "/" + attemptID
}

func (m *memAttemptRepo) Insert(ctx context.Context, attempt *model.Attempt, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := attemptKey(attempt.MerchantID, attempt.PaymentID, attempt.AttemptID)
	if _, ok := m.store[key]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *attempt
	m.store[key] = &cp
	return nil
}

func (m *memAttemptRepo) FindByPaymentIDMerchantIDAttemptID(ctx context.Context, paymentID, merchantID, attemptID string, _ model.StorageScheme) (*model.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attempt, ok := m.store[attemptKey(merchantID, paymentID, attemptID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *attempt
	return &cp, nil
}

func (m *memAttemptRepo) Update(ctx context.Context, paymentID, merchantID, attemptID string, update repository.AttemptUpdate, _ model.StorageScheme) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.store[attemptKey(merchantID, paymentID, attemptID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Amount != nil {
		attempt.Amount = *update.Amount
	}
	if update.Currency != nil {
		attempt.Currency = *update.Currency
	}
	if update.Status != nil {
		attempt.Status = *update.Status
	}
	if update.Connector != nil {
		attempt.Connector = *update.Connector
	}
	if update.MerchantConnectorID != nil {
		attempt.MerchantConnectorID = *update.MerchantConnectorID
	}
	if update.AmountToCapture != nil {
		attempt.AmountToCapture = *update.AmountToCapture
	}
	if update.CaptureMethod != nil {
		attempt.CaptureMethod = *update.CaptureMethod
	}
	if update.PaymentMethod != nil {
		attempt.PaymentMethod = *update.PaymentMethod
	}
	if update.PaymentMethodID != nil {
		attempt.PaymentMethodID = *update.PaymentMethodID
	}
	if update.PaymentToken != nil {
		attempt.PaymentToken = *update.PaymentToken
	}
	if update.SurchargeAmount != nil {
		attempt.SurchargeAmount = *update.SurchargeAmount
	}
	if update.TaxOnSurcharge != nil {
		attempt.TaxOnSurcharge = *update.TaxOnSurcharge
	}
	if update.ConnectorTransaction != nil {
		attempt.ConnectorTransaction = *update.ConnectorTransaction
	}
	if update.ErrorCode != nil {
		attempt.ErrorCode = *update.ErrorCode
	}
	if update.ErrorMessage != nil {
		attempt.ErrorMessage = *update.ErrorMessage
	}
	cp := *attempt
	return &cp, nil
}

func (m *memAttemptRepo) FindByConnectorTransactionID(ctx context.Context, merchantID, connectorTxnID string, _ model.StorageScheme) (*model.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, attempt := range m.store {
		if attempt.MerchantID == merchantID && attempt.ConnectorTransaction == connectorTxnID {
			cp := *attempt
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memMandateRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Mandate
}

func newMemMandateRepo() *memMandateRepo {
	return &memMandateRepo{store: make(map[string]*model.Mandate)}
}

func (m *memMandateRepo) Insert(ctx context.Context, mandate *model.Mandate, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mandate
	m.store[mandate.MerchantID+"/"+mandate.MandateID] = &cp
	return nil
}

func (m *memMandateRepo) FindByMerchantIDMandateID(ctx context.Context, merchantID, mandateID string, _ model.StorageScheme) (*model.Mandate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mandate, ok := m.store[merchantID+"/"+mandateID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mandate
	return &cp, nil
}

func (m *memMandateRepo) UpdateStatus(ctx context.Context, merchantID, mandateID string, status model.MandateStatus, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mandate, ok := m.store[merchantID+"/"+mandateID]
	if !ok {
		return domain.ErrNotFound
	}
	mandate.Status = status
	return nil
}

type memPaymentMethodRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.PaymentMethod
	insertErr error
}

func newMemPaymentMethodRepo() *memPaymentMethodRepo {
	return &memPaymentMethodRepo{store: make(map[string]*model.PaymentMethod)}
}

func (m *memPaymentMethodRepo) Insert(ctx context.Context, pm *model.PaymentMethod, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
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
	delete(m.store, id)
	return nil
}

type memCustomerRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{store: make(map[string]*model.Customer)}
}

func (m *memCustomerRepo) Insert(ctx context.Context, customer *model.Customer, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *customer
	m.store[customer.MerchantID+"/"+customer.CustomerID] = &cp
	return nil
}

func (m *memCustomerRepo) FindByCustomerIDMerchantID(ctx context.Context, customerID, merchantID string, _ model.StorageScheme) (*model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	customer, ok := m.store[merchantID+"/"+customerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *customer
	return &cp, nil
}

type memAddressRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Address
}

func newMemAddressRepo() *memAddressRepo {
	return &memAddressRepo{store: make(map[string]*model.Address)}
}

func (m *memAddressRepo) Insert(ctx context.Context, addr *model.Address, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *addr
	m.store[addr.AddressID] = &cp
	return nil
}

func (m *memAddressRepo) FindByID(ctx context.Context, addressID string, _ model.StorageScheme) (*model.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.store[addressID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *addr
	return &cp, nil
}

func (m *memAddressRepo) Update(ctx context.Context, addr *model.Address, _ model.StorageScheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[addr.AddressID]; !ok {
		return domain.ErrNotFound
	}
	cp := *addr
	m.store[addr.AddressID] = &cp
	return nil
}

type memMerchantRepo struct {
	merchants map[string]*model.MerchantAccount
}

func (m *memMerchantRepo) FindByMerchantID(ctx context.Context, merchantID string) (*model.MerchantAccount, error) {
	merchant, ok := m.merchants[merchantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *merchant
	return &cp, nil
}

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

type memConfigRepo struct {
	mu    sync.RWMutex
	store map[string]string
}

func newMemConfigRepo() *memConfigRepo {
	return &memConfigRepo{store: make(map[string]string)}
}

func (m *memConfigRepo) Find(ctx context.Context, key string) (string, error) {
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
	m.store[key] = value
	return nil
}

func (m *memConfigRepo) Update(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

// ---- test connector adapter ----

// testIntegration is the scriptable connector used by pipeline tests. Every
// flow is supported; the outcome returned is whatever the test scripted.
type testIntegration struct {
	mu      sync.Mutex
	name    string
	outcome connector.Outcome
	flows   []connector.Flow
}

func newTestIntegration() *testIntegration {
	return &testIntegration{
		name: "testpay",
		outcome: connector.Outcome{Response: &connector.TransactionResponse{
			ResourceID: "txn_1",
			Status:     model.AttemptStatusCharged,
		}},
	}
}

func (ti *testIntegration) script(outcome connector.Outcome) { ti.outcome = outcome }

func (ti *testIntegration) calledFlows() []connector.Flow {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return append([]connector.Flow(nil), ti.flows...)
}

func (ti *testIntegration) Name() string        { return ti.name }
func (ti *testIntegration) ContentType() string { return "application/json" }

func (ti *testIntegration) SupportsFlow(connector.Flow) connector.FlowSupport {
	return connector.FlowSupported
}

func (ti *testIntegration) AuthHeaders(*connector.CallContext) (map[string]string, error) {
	return nil, nil
}

func (ti *testIntegration) Headers(connector.Flow, *connector.CallContext) (map[string]string, error) {
	return map[string]string{"Content-Type": "application/json"}, nil
}

func (ti *testIntegration) URL(connector.Flow, *connector.CallContext) (string, error) {
	return "http://testpay.invalid/op", nil
}

func (ti *testIntegration) RequestBody(connector.Flow, *connector.CallContext) ([]byte, error) {
	return []byte(`{}`), nil
}

func (ti *testIntegration) BuildRequest(flow connector.Flow, call *connector.CallContext) (*connector.Request, error) {
	ti.mu.Lock()
	ti.flows = append(ti.flows, flow)
	ti.mu.Unlock()
	return connector.BuildJSONRequest(ti, flow, call)
}

func (ti *testIntegration) Pretasks(connector.Flow) []connector.Pretask { return nil }

func (ti *testIntegration) HandleResponse(connector.Flow, *connector.CallContext, *connector.HTTPResponse) (*connector.Outcome, error) {
	out := ti.outcome
	return &out, nil
}

func (ti *testIntegration) ErrorBody(*connector.HTTPResponse) connector.ErrorResponse {
	return connector.ErrorResponse{}
}

// testWebhookHandler is a scriptable webhook sub-contract: verification
// outcome, event kind, reference and resource are all fixed by the test.
type staticAlg struct{ ok bool }

func (a staticAlg) Verify([]byte, []byte) bool { return a.ok }

type testWebhookHandler struct {
	verified bool
	kind     connector.WebhookEventKind
	ref      connector.ObjectReference
	resource connector.TransactionResponse
}

func (h *testWebhookHandler) VerificationAlgorithm(*connector.WebhookEnvelope) (connector.SignatureAlgorithm, error) {
	return staticAlg{ok: h.verified}, nil
}

func (h *testWebhookHandler) Signature(*connector.WebhookEnvelope, string) ([]byte, error) {
	return []byte("sig"), nil
}

func (h *testWebhookHandler) SignedMessage(*connector.WebhookEnvelope, string) ([]byte, error) {
	return []byte("msg"), nil
}

func (h *testWebhookHandler) ObjectReference(*connector.WebhookEnvelope) (connector.ObjectReference, error) {
	return h.ref, nil
}

func (h *testWebhookHandler) EventKind(*connector.WebhookEnvelope) (connector.WebhookEventKind, error) {
	return h.kind, nil
}

func (h *testWebhookHandler) ResourceObject(*connector.WebhookEnvelope) (*connector.TransactionResponse, error) {
	res := h.resource
	return &res, nil
}

// testRedirectHandler scripts the redirect resolution outcome.
type testRedirectHandler struct {
	action connector.CallAction
	err    error
}

func (h *testRedirectHandler) ResolveRedirect(connector.PaymentAction, url.Values, json.RawMessage) (connector.CallAction, error) {
	return h.action, h.err
}

// roundTripFunc stubs the executor's transport.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func okClient() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
		}, nil
	})}
}

// ---- deps bundle ----

type testDeps struct {
	intents   *memIntentRepo
	attempts  *memAttemptRepo
	mandates  *memMandateRepo
	methods   *memPaymentMethodRepo
	customers *memCustomerRepo
	addresses *memAddressRepo
	merchants *memMerchantRepo
	mcas      *memMCARepo
	configs   *memConfigRepo
	integ     *testIntegration
	webhook   *testWebhookHandler
	redirect  *testRedirectHandler
	adapters  *connector.Registry
	deps      *Deps
	executor  *Executor
}

// newTestDeps wires a full in-memory pipeline around the testpay connector
// with merchant m1 routing to it by default config.
func newTestDeps() *testDeps {
	logger := newTestLogger()
	td := &testDeps{
		intents:   newMemIntentRepo(),
		attempts:  newMemAttemptRepo(),
		mandates:  newMemMandateRepo(),
		methods:   newMemPaymentMethodRepo(),
		customers: newMemCustomerRepo(),
		addresses: newMemAddressRepo(),
		configs:   newMemConfigRepo(),
		integ:     newTestIntegration(),
		webhook:   &testWebhookHandler{verified: true},
		redirect:  &testRedirectHandler{action: connector.TriggerAction()},
	}
	td.merchants = &memMerchantRepo{merchants: map[string]*model.MerchantAccount{
		"m1": {MerchantID: "m1", StorageScheme: model.StorageSchemePostgresOnly, DefaultProfileID: "p1"},
	}}
	td.mcas = &memMCARepo{accounts: []*model.MerchantConnectorAccount{
		{
			MerchantID:          "m1",
			ProfileID:           "p1",
			ConnectorName:       "testpay",
			MerchantConnectorID: "mca_testpay",
			AuthConfig:          map[string]string{"api_key": "k"},
			WebhookSecret:       "s",
		},
	}}

	td.adapters = connector.NewRegistry()
	td.adapters.Register(connector.Adapter{Integration: td.integ, Webhook: td.webhook, Redirect: td.redirect})

	router := routing.NewEngine(td.configs, td.mcas, nil, logger)
	evaluator := routing.NewEvaluator(rand.New(rand.NewSource(1)), logger)
	cfg := &config.Config{
		Locker:     config.LockerConfig{Enabled: false},
		Connectors: map[string]config.ConnectorSettings{"testpay": {BaseURL: "http://testpay.invalid/"}},
	}

	td.deps = &Deps{
		Intents:            td.intents,
		Attempts:           td.attempts,
		Mandates:           td.mandates,
		Methods:            td.methods,
		Customers:          td.customers,
		Addresses:          td.addresses,
		Merchants:          td.merchants,
		MerchantConnectors: td.mcas,
		Router:             router,
		Evaluator:          evaluator,
		Adapters:           td.adapters,
		Calls:              connector.NewExecutorWithClient(okClient(), logger),
		Reconciler:         reconcile.NewReconciler(td.methods, nil, cfg, logger),
		Cfg:                cfg,
		Log:                logger,
	}
	td.executor = NewExecutor(DefaultRegistry(), td.deps)

	// Merchant m1 falls back to testpay when no dictionary record is active.
	if err := router.UpdateDefaultConfig(context.Background(), "m1",
		[]model.ConnectorChoice{{Connector: "testpay"}}, model.TransactionTypePayment); err != nil {
		panic(err)
	}
	return td
}
