package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iho/gopayouts/internal/domain"
)

// MockAccountDirectory is a mock implementation of AccountDirectory.
type MockAccountDirectory struct {
	Accounts []*domain.Account

	GetActiveAccountsFunc func(ctx context.Context) ([]*domain.Account, error)
}

func NewMockAccountDirectory(accounts ...*domain.Account) *MockAccountDirectory {
	return &MockAccountDirectory{Accounts: accounts}
}

func (m *MockAccountDirectory) GetActiveAccounts(ctx context.Context) ([]*domain.Account, error) {
	if m.GetActiveAccountsFunc != nil {
		return m.GetActiveAccountsFunc(ctx)
	}
	return m.Accounts, nil
}

// MockVendorSource is a mock implementation of VendorSource. Payouts are
// keyed by account ID.
type MockVendorSource struct {
	mu      sync.RWMutex
	payouts map[string][]*domain.VendorPayout
	errs    map[string]error

	GetPayoutsFunc func(ctx context.Context, account *domain.Account, window domain.Window) ([]*domain.VendorPayout, error)
}

func NewMockVendorSource() *MockVendorSource {
	return &MockVendorSource{
		payouts: make(map[string][]*domain.VendorPayout),
		errs:    make(map[string]error),
	}
}

// AddPayouts registers payouts returned for accountID.
func (m *MockVendorSource) AddPayouts(accountID string, payouts ...*domain.VendorPayout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts[accountID] = append(m.payouts[accountID], payouts...)
}

// FailAccount makes GetPayouts return err for accountID.
func (m *MockVendorSource) FailAccount(accountID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[accountID] = err
}

func (m *MockVendorSource) GetPayouts(ctx context.Context, account *domain.Account, window domain.Window) ([]*domain.VendorPayout, error) {
	if m.GetPayoutsFunc != nil {
		return m.GetPayoutsFunc(ctx, account, window)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[account.ID]; ok {
		return nil, err
	}
	return m.payouts[account.ID], nil
}

// MockTransactionLookup is a mock implementation of TransactionLookup.
// Transactions are keyed by settlement ID.
type MockTransactionLookup struct {
	mu           sync.RWMutex
	transactions map[string][]*domain.VendorTransaction
	calls        int

	GetTransactionsFunc func(ctx context.Context, settlementID, accountExternalID string) ([]*domain.VendorTransaction, error)
}

func NewMockTransactionLookup() *MockTransactionLookup {
	return &MockTransactionLookup{
		transactions: make(map[string][]*domain.VendorTransaction),
	}
}

// AddTransactions registers transactions returned for settlementID.
func (m *MockTransactionLookup) AddTransactions(settlementID string, txs ...*domain.VendorTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[settlementID] = append(m.transactions[settlementID], txs...)
}

// Calls returns how many lookups were made.
func (m *MockTransactionLookup) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *MockTransactionLookup) GetTransactions(ctx context.Context, settlementID, accountExternalID string) ([]*domain.VendorTransaction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, settlementID, accountExternalID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[settlementID], nil
}

// MockReportExporter is a mock implementation of ReportExporter that keeps
// the last exported batch.
type MockReportExporter struct {
	mu       sync.Mutex
	exported map[string][]*domain.Settlement

	ExportFunc func(ctx context.Context, key string, settlements []*domain.Settlement) error
}

func NewMockReportExporter() *MockReportExporter {
	return &MockReportExporter{
		exported: make(map[string][]*domain.Settlement),
	}
}

func (m *MockReportExporter) Export(ctx context.Context, key string, settlements []*domain.Settlement) error {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, key, settlements)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exported[key] = settlements
	return nil
}

// Exported returns what was exported under key.
func (m *MockReportExporter) Exported(key string) ([]*domain.Settlement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.exported[key]
	return s, ok
}

// MockBatchObserver counts observed batch events.
type MockBatchObserver struct {
	mu                 sync.Mutex
	Completed          []*domain.PayoutBatch
	AccountFailures    int
	AggregationFailure int
}

func (m *MockBatchObserver) BatchCompleted(batch *domain.PayoutBatch, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, batch)
}

func (m *MockBatchObserver) AccountFetchFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccountFailures++
}

func (m *MockBatchObserver) AggregationFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AggregationFailure++
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockCache is an in-memory implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
