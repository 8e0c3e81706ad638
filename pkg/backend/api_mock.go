package backend

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
)

// MockAPIClient is an in-memory implementation of APIClient for testing.
// Its default behavior mimics the backend: updates return the canonical
// record with recomputed price and display strings, bulk updates return only
// the records that matched. Individual operations can be overridden with the
// On* hooks, and SimulateErrors makes every call fail.
type MockAPIClient struct {
	SimulateErrors bool

	OnUpdateShipment      func(ctx context.Context, id int64, patch shipment.Patch) (*shipment.ShipmentRecord, error)
	OnBulkUpdateShipments func(ctx context.Context, ids []int64, patch shipment.Patch) ([]shipment.ShipmentRecord, error)
	OnUpload              func(ctx context.Context, filename string, file io.Reader) (*UploadResponse, error)
	OnPurchase            func(ctx context.Context, ids []int64, format shipment.LabelFormat) (*PurchaseResponse, error)

	mu        sync.Mutex
	records   []shipment.ShipmentRecord
	addresses []shipment.SavedAddress
	packages  []shipment.SavedPackage
	profile   shipment.Profile
	nextID    int64
}

// NewMockAPIClient creates a mock with an empty record set and a default
// profile.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		profile: shipment.Profile{
			Username:       "testuser",
			Email:          "test@example.com",
			AccountBalance: 1000,
		},
		nextID: 1,
	}
}

// SeedRecords replaces the mock's record set, assigning ids to records that
// have none.
func (m *MockAPIClient) SeedRecords(records []shipment.ShipmentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make([]shipment.ShipmentRecord, len(records))
	copy(m.records, records)
	for i := range m.records {
		if m.records[i].ID == 0 {
			m.records[i].ID = m.nextID
			m.nextID++
		} else if m.records[i].ID >= m.nextID {
			m.nextID = m.records[i].ID + 1
		}
	}
}

// SetBalance overrides the mock profile's balance.
func (m *MockAPIClient) SetBalance(p shipment.Price) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile.AccountBalance = p
}

func (m *MockAPIClient) errIfSimulating() error {
	if m.SimulateErrors {
		return &shipment.APIError{Code: "MOCK_ERROR", Message: "simulated backend error", StatusCode: 500}
	}
	return nil
}

func (m *MockAPIClient) ListShipments(ctx context.Context) ([]shipment.ShipmentRecord, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shipment.ShipmentRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MockAPIClient) GetShipment(ctx context.Context, id int64) (*shipment.ShipmentRecord, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, &shipment.APIError{StatusCode: 404, Message: "not found", Cause: shipment.ErrRecordNotFound}
}

func (m *MockAPIClient) UpdateShipment(ctx context.Context, id int64, patch shipment.Patch) (*shipment.ShipmentRecord, error) {
	if m.OnUpdateShipment != nil {
		return m.OnUpdateShipment(ctx, id, patch)
	}
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		patch.Apply(&m.records[i])
		if patch.ShippingService != nil && patch.ShippingPrice == nil {
			m.records[i].RecalculatePrice()
		}
		m.records[i].Refresh()
		r := m.records[i]
		return &r, nil
	}
	return nil, &shipment.APIError{StatusCode: 404, Message: "not found", Cause: shipment.ErrRecordNotFound}
}

func (m *MockAPIClient) DeleteShipment(ctx context.Context, id int64) error {
	if err := m.errIfSimulating(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	found := false
	for _, r := range m.records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	if !found {
		return &shipment.APIError{StatusCode: 404, Message: "not found", Cause: shipment.ErrRecordNotFound}
	}
	return nil
}

func (m *MockAPIClient) DeleteAllShipments(ctx context.Context) (*MessageResponse, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := len(m.records)
	m.records = nil
	return &MessageResponse{Message: fmt.Sprintf("Successfully deleted all shipments (%d records)", count)}, nil
}

func (m *MockAPIClient) BulkUpdateShipments(ctx context.Context, ids []int64, patch shipment.Patch) ([]shipment.ShipmentRecord, error) {
	if m.OnBulkUpdateShipments != nil {
		return m.OnBulkUpdateShipments(ctx, ids, patch)
	}
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var updated []shipment.ShipmentRecord
	for i := range m.records {
		if !wanted[m.records[i].ID] {
			continue
		}
		patch.Apply(&m.records[i])
		if patch.ShippingService != nil && patch.ShippingPrice == nil {
			m.records[i].RecalculatePrice()
		}
		m.records[i].Refresh()
		updated = append(updated, m.records[i])
	}
	return updated, nil
}

func (m *MockAPIClient) BulkDeleteShipments(ctx context.Context, ids []int64) error {
	if err := m.errIfSimulating(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if !wanted[r.ID] {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *MockAPIClient) ListAddresses(ctx context.Context) ([]shipment.SavedAddress, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shipment.SavedAddress, len(m.addresses))
	copy(out, m.addresses)
	return out, nil
}

func (m *MockAPIClient) CreateAddress(ctx context.Context, addr shipment.SavedAddress) (*shipment.SavedAddress, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	addr.ID = m.nextID
	m.nextID++
	m.addresses = append(m.addresses, addr)
	return &addr, nil
}

func (m *MockAPIClient) UpdateAddress(ctx context.Context, id int64, addr shipment.SavedAddress) (*shipment.SavedAddress, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.addresses {
		if m.addresses[i].ID == id {
			addr.ID = id
			m.addresses[i] = addr
			return &addr, nil
		}
	}
	return nil, &shipment.APIError{StatusCode: 404, Message: "not found"}
}

func (m *MockAPIClient) DeleteAddress(ctx context.Context, id int64) error {
	if err := m.errIfSimulating(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.addresses[:0]
	for _, a := range m.addresses {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	m.addresses = kept
	return nil
}

func (m *MockAPIClient) ListPackages(ctx context.Context) ([]shipment.SavedPackage, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shipment.SavedPackage, len(m.packages))
	copy(out, m.packages)
	return out, nil
}

func (m *MockAPIClient) CreatePackage(ctx context.Context, pkg shipment.SavedPackage) (*shipment.SavedPackage, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg.ID = m.nextID
	m.nextID++
	m.packages = append(m.packages, pkg)
	return &pkg, nil
}

func (m *MockAPIClient) UpdatePackage(ctx context.Context, id int64, pkg shipment.SavedPackage) (*shipment.SavedPackage, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.packages {
		if m.packages[i].ID == id {
			pkg.ID = id
			m.packages[i] = pkg
			return &pkg, nil
		}
	}
	return nil, &shipment.APIError{StatusCode: 404, Message: "not found"}
}

func (m *MockAPIClient) DeletePackage(ctx context.Context, id int64) error {
	if err := m.errIfSimulating(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.packages[:0]
	for _, p := range m.packages {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.packages = kept
	return nil
}

func (m *MockAPIClient) Upload(ctx context.Context, filename string, file io.Reader) (*UploadResponse, error) {
	if m.OnUpload != nil {
		return m.OnUpload(ctx, filename, file)
	}
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shipment.ShipmentRecord, len(m.records))
	copy(out, m.records)
	return &UploadResponse{
		Message: fmt.Sprintf("Successfully imported %d records", len(out)),
		Records: out,
	}, nil
}

func (m *MockAPIClient) Purchase(ctx context.Context, ids []int64, format shipment.LabelFormat) (*PurchaseResponse, error) {
	if m.OnPurchase != nil {
		return m.OnPurchase(ctx, ids, format)
	}
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var total shipment.Price
	count := 0
	for i := range m.records {
		if !wanted[m.records[i].ID] {
			continue
		}
		total += m.records[i].ShippingPrice
		count++
	}
	if count == 0 {
		return nil, &shipment.APIError{StatusCode: 404, Message: "No valid records found"}
	}
	if total > m.profile.AccountBalance {
		return nil, &shipment.APIError{
			StatusCode: 400,
			Message:    "Insufficient balance",
			Cause:      shipment.ErrInsufficientBalance,
		}
	}
	m.profile.AccountBalance -= total
	for i := range m.records {
		if wanted[m.records[i].ID] {
			m.records[i].Status = shipment.StatusProcessed
		}
	}
	return &PurchaseResponse{
		Message:          fmt.Sprintf("Successfully purchased %d labels", count),
		Total:            total,
		LabelFormat:      format,
		RecordsProcessed: count,
		NewBalance:       m.profile.AccountBalance,
	}, nil
}

func (m *MockAPIClient) Template(ctx context.Context) ([]byte, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	return []byte("From,,,,,,,,To\n"), nil
}

func (m *MockAPIClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &LoginResponse{Access: "mock-access", Refresh: "mock-refresh", User: m.profile}, nil
}

func (m *MockAPIClient) Logout(ctx context.Context) error {
	return m.errIfSimulating()
}

func (m *MockAPIClient) Register(ctx context.Context, req RegisterRequest) (*shipment.Profile, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	return &shipment.Profile{Username: req.Username, Email: req.Email, AccountBalance: 1000}, nil
}

func (m *MockAPIClient) Profile(ctx context.Context) (*shipment.Profile, error) {
	if err := m.errIfSimulating(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profile
	return &p, nil
}

// Ensure MockAPIClient implements APIClient.
var _ APIClient = (*MockAPIClient)(nil)
