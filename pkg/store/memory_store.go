package store

import (
	"sync"
	"time"

	"vendorhub/pkg/domain"
)

// MemoryStore keeps all records in-process. It implements the same atomicity
// contract as the SQL store and is used by tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	email      map[string]string // email -> user ID
	userOrder  []string
	equipment  map[string]domain.Equipment
	equipOrder []string
	rfqs       map[string]domain.RFQ
	rfqOrder   []string
	bids       map[string]domain.Bid
	bidOrder   []string
	orders     map[string]domain.Order // key: order ID
	orderByBid map[string]string       // bid ID -> order ID
	orderOrder []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		email:      make(map[string]string),
		equipment:  make(map[string]domain.Equipment),
		rfqs:       make(map[string]domain.RFQ),
		bids:       make(map[string]domain.Bid),
		orders:     make(map[string]domain.Order),
		orderByBid: make(map[string]string),
	}
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; !exists {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns users in insertion order, optionally filtered by role.
func (m *MemoryStore) ListUsers(role domain.UserRole) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		res = append(res, u)
	}
	return res, nil
}

// UserCount returns number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// SaveEquipment stores a catalog entry.
func (m *MemoryStore) SaveEquipment(e domain.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.equipment[e.ID]; !exists {
		m.equipOrder = append(m.equipOrder, e.ID)
	}
	m.equipment[e.ID] = e
	return nil
}

// GetEquipment retrieves a catalog entry.
func (m *MemoryStore) GetEquipment(id string) (domain.Equipment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.equipment[id]
	return e, ok, nil
}

// ListEquipment returns the catalog in insertion order.
func (m *MemoryStore) ListEquipment() ([]domain.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Equipment, 0, len(m.equipOrder))
	for _, id := range m.equipOrder {
		if e, ok := m.equipment[id]; ok {
			res = append(res, e)
		}
	}
	return res, nil
}

// SaveRFQ stores or replaces an RFQ.
func (m *MemoryStore) SaveRFQ(r domain.RFQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rfqs[r.ID]; !exists {
		m.rfqOrder = append(m.rfqOrder, r.ID)
	}
	m.rfqs[r.ID] = r
	return nil
}

// GetRFQ retrieves an RFQ.
func (m *MemoryStore) GetRFQ(id string) (domain.RFQ, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rfqs[id]
	return r, ok, nil
}

// ListRFQs returns RFQs newest first, optionally filtered by status.
func (m *MemoryStore) ListRFQs(status domain.RFQStatus) ([]domain.RFQ, error) {
	return m.listRFQs(status, "")
}

// ListRFQsByClient returns one client's RFQs newest first.
func (m *MemoryStore) ListRFQsByClient(clientID string, status domain.RFQStatus) ([]domain.RFQ, error) {
	return m.listRFQs(status, clientID)
}

func (m *MemoryStore) listRFQs(status domain.RFQStatus, clientID string) ([]domain.RFQ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.RFQ, 0, len(m.rfqOrder))
	for i := len(m.rfqOrder) - 1; i >= 0; i-- {
		r, ok := m.rfqs[m.rfqOrder[i]]
		if !ok {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		if clientID != "" && r.ClientID != clientID {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

// SaveBid stores or replaces a bid.
func (m *MemoryStore) SaveBid(b domain.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bids[b.ID]; !exists {
		m.bidOrder = append(m.bidOrder, b.ID)
	}
	m.bids[b.ID] = b
	return nil
}

// GetBid retrieves a bid.
func (m *MemoryStore) GetBid(id string) (domain.Bid, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bids[id]
	return b, ok, nil
}

// ListBidsByRFQ returns bids for an RFQ in submission order.
func (m *MemoryStore) ListBidsByRFQ(rfqID string) ([]domain.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Bid, 0, len(m.bidOrder))
	for _, id := range m.bidOrder {
		if b, ok := m.bids[id]; ok && b.RFQID == rfqID {
			res = append(res, b)
		}
	}
	return res, nil
}

// ListBids returns all bids newest first.
func (m *MemoryStore) ListBids() ([]domain.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Bid, 0, len(m.bidOrder))
	for i := len(m.bidOrder) - 1; i >= 0; i-- {
		if b, ok := m.bids[m.bidOrder[i]]; ok {
			res = append(res, b)
		}
	}
	return res, nil
}

// HasVendorBid checks whether the vendor already bid on the RFQ.
func (m *MemoryStore) HasVendorBid(rfqID, vendorID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bids {
		if b.RFQID == rfqID && b.VendorID == vendorID {
			return true, nil
		}
	}
	return false, nil
}

// SetBidStatus updates a bid's status.
func (m *MemoryStore) SetBidStatus(id string, status domain.BidStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bids[id]
	if !ok {
		return ErrBidNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	m.bids[id] = b
	return nil
}

// CreateOrder performs the accept sequence atomically under the store lock.
func (m *MemoryStore) CreateOrder(o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bid, ok := m.bids[o.BidID]
	if !ok {
		return ErrBidNotFound
	}
	if bid.Status == domain.BidRejected {
		return ErrBidRejected
	}
	if _, exists := m.orderByBid[o.BidID]; exists {
		return ErrOrderExists
	}
	rfq, ok := m.rfqs[bid.RFQID]
	if !ok || rfq.Status != domain.RFQOpen {
		return ErrRFQNotOpen
	}
	now := time.Now().UTC()
	rfq.Status = domain.RFQClosed
	rfq.UpdatedAt = now
	m.rfqs[rfq.ID] = rfq
	bid.Status = domain.BidAccepted
	bid.UpdatedAt = now
	m.bids[bid.ID] = bid
	m.orders[o.ID] = o
	m.orderByBid[o.BidID] = o.ID
	m.orderOrder = append(m.orderOrder, o.ID)
	return nil
}

// GetOrderByBid returns the order referencing a bid, if any.
func (m *MemoryStore) GetOrderByBid(bidID string) (domain.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.orderByBid[bidID]
	if !ok {
		return domain.Order{}, false, nil
	}
	o, exists := m.orders[id]
	return o, exists, nil
}

// ListOrders returns all orders newest first.
func (m *MemoryStore) ListOrders() ([]domain.Order, error) {
	return m.listOrders(func(domain.Order) bool { return true })
}

// ListOrdersByClient returns a client's orders newest first.
func (m *MemoryStore) ListOrdersByClient(clientID string) ([]domain.Order, error) {
	return m.listOrders(func(o domain.Order) bool { return o.ClientID == clientID })
}

// ListOrdersByVendor returns a vendor's orders newest first.
func (m *MemoryStore) ListOrdersByVendor(vendorID string) ([]domain.Order, error) {
	return m.listOrders(func(o domain.Order) bool { return o.VendorID == vendorID })
}

func (m *MemoryStore) listOrders(keep func(domain.Order) bool) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Order, 0, len(m.orderOrder))
	for i := len(m.orderOrder) - 1; i >= 0; i-- {
		if o, ok := m.orders[m.orderOrder[i]]; ok && keep(o) {
			res = append(res, o)
		}
	}
	return res, nil
}
