package store

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GORM models used for persistence. List-valued and document-valued fields
// (invited vendors, certifications, PO details, history) are JSON columns.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;index"`
	Name         string `gorm:"not null"`

	CompanyName     string
	ContactName     string
	Phone           string
	Certifications  datatypes.JSON
	Categories      datatypes.JSON
	Rating          decimal.Decimal `gorm:"type:numeric(3,2)"`
	OrdersCount     int
	ExperienceYears int

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type EquipmentModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Category     string `gorm:"not null"`
	Specs        datatypes.JSON
	CertRequired bool      `gorm:"not null"`
	RentalPeriod int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type RFQModel struct {
	ID          string         `gorm:"primaryKey"`
	ClientID    string         `gorm:"not null;index"`
	EquipmentID string         `gorm:"not null;index"`
	VendorIDs   datatypes.JSON `gorm:"not null"`
	Status      string         `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type BidModel struct {
	ID           string          `gorm:"primaryKey"`
	RFQID        string          `gorm:"column:rfq_id;not null;index"`
	VendorID     string          `gorm:"not null;index"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	CertFile     string
	Availability string
	Status       string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type OrderModel struct {
	ID        string         `gorm:"primaryKey"`
	BidID     string         `gorm:"not null;uniqueIndex"`
	ClientID  string         `gorm:"not null;index"`
	VendorID  string         `gorm:"not null;index"`
	PODetails datatypes.JSON `gorm:"column:po_details"`
	Status    string         `gorm:"not null"`
	History   datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}
