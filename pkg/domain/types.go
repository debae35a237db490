package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleClient UserRole = "client"
	RoleVendor UserRole = "vendor"
	RoleAdmin  UserRole = "admin"
)

type RFQStatus string

const (
	RFQOpen      RFQStatus = "open"
	RFQClosed    RFQStatus = "closed"
	RFQAwarded   RFQStatus = "awarded"
	RFQCancelled RFQStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s RFQStatus) Terminal() bool {
	return s == RFQClosed || s == RFQAwarded || s == RFQCancelled
}

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

func (s BidStatus) Terminal() bool {
	return s == BidAccepted || s == BidRejected
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// User is an account with one of three roles. The vendor profile block is
// meaningful only when Role is RoleVendor.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	Name         string   `json:"name"`

	CompanyName     string          `json:"companyName,omitempty"`
	ContactName     string          `json:"contactName,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	Certifications  []string        `json:"certifications,omitempty"`
	Categories      []string        `json:"categories,omitempty"`
	Rating          decimal.Decimal `json:"rating"`
	OrdersCount     int             `json:"ordersCount"`
	ExperienceYears int             `json:"experienceYears"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Equipment is an immutable catalog entry seeded once.
type Equipment struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Specs        map[string]string `json:"specs,omitempty"`
	CertRequired bool              `json:"certReq"`
	RentalPeriod int               `json:"rentalPeriod"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// RFQ solicits bids for one equipment item from an explicit set of vendors.
// Status only moves forward: open is the sole non-terminal state.
type RFQ struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	EquipmentID string    `json:"equipmentId"`
	VendorIDs   []string  `json:"vendors"`
	Status      RFQStatus `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Invited reports whether the vendor is in the invited-vendor list.
// IDs are normalized at write time, so membership is plain equality.
func (r RFQ) Invited(vendorID string) bool {
	for _, id := range r.VendorIDs {
		if id == vendorID {
			return true
		}
	}
	return false
}

// Bid is a vendor's priced response to an RFQ.
type Bid struct {
	ID           string          `json:"id"`
	RFQID        string          `json:"rfqId"`
	VendorID     string          `json:"vendorId"`
	Price        decimal.Decimal `json:"price"`
	CertFile     string          `json:"certFile,omitempty"`
	Availability string          `json:"availability,omitempty"`
	Status       BidStatus       `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// PODetails is stamped on an order at creation.
type PODetails struct {
	PONumber    string          `json:"poNumber"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Price       decimal.Decimal `json:"price"`
}

// OrderEvent is one entry of an order's append-only history log.
type OrderEvent struct {
	Status OrderStatus `json:"status"`
	Date   time.Time   `json:"date"`
	Note   string      `json:"note"`
}

// Order is the purchase commitment derived from exactly one accepted bid.
// Client and vendor IDs are denormalized from that bid.
type Order struct {
	ID        string       `json:"id"`
	BidID     string       `json:"bidId"`
	ClientID  string       `json:"clientId"`
	VendorID  string       `json:"vendorId"`
	PODetails PODetails    `json:"poDetails"`
	Status    OrderStatus  `json:"status"`
	History   []OrderEvent `json:"history"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
