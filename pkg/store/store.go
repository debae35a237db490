package store

import (
	"errors"

	"vendorhub/pkg/domain"
)

// Typed failures surfaced by CreateOrder so callers can map them to their
// own error taxonomy.
var (
	ErrBidNotFound = errors.New("bid not found")
	ErrBidRejected = errors.New("bid was rejected")
	ErrRFQNotOpen  = errors.New("rfq is not open")
	ErrOrderExists = errors.New("order already exists for bid")
)

// Store defines persistence operations for users, equipment, RFQs, bids,
// and orders.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers(role domain.UserRole) ([]domain.User, error)
	UserCount() (int, error)

	// equipment
	SaveEquipment(domain.Equipment) error
	GetEquipment(id string) (domain.Equipment, bool, error)
	ListEquipment() ([]domain.Equipment, error)

	// rfqs
	SaveRFQ(domain.RFQ) error
	GetRFQ(id string) (domain.RFQ, bool, error)
	ListRFQs(status domain.RFQStatus) ([]domain.RFQ, error)
	ListRFQsByClient(clientID string, status domain.RFQStatus) ([]domain.RFQ, error)

	// bids
	SaveBid(domain.Bid) error
	GetBid(id string) (domain.Bid, bool, error)
	ListBidsByRFQ(rfqID string) ([]domain.Bid, error)
	ListBids() ([]domain.Bid, error)
	HasVendorBid(rfqID, vendorID string) (bool, error)
	SetBidStatus(id string, status domain.BidStatus) error

	// orders
	//
	// CreateOrder performs the accept sequence as one atomic unit: it
	// re-validates that the bid exists and was not rejected, that no order
	// references it yet, and that the owning RFQ is still open, then inserts
	// the order, marks the bid accepted, and closes the RFQ. Under concurrent
	// calls against the same RFQ exactly one succeeds; the rest fail with
	// ErrOrderExists or ErrRFQNotOpen.
	CreateOrder(domain.Order) error
	GetOrderByBid(bidID string) (domain.Order, bool, error)
	ListOrders() ([]domain.Order, error)
	ListOrdersByClient(clientID string) ([]domain.Order, error)
	ListOrdersByVendor(vendorID string) ([]domain.Order, error)
}
