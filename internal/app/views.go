package app

import (
	"fmt"
	"time"

	"vendorhub/pkg/domain"
)

// Read-side view assembly: raw rows in, response shapes out. Foreign keys are
// replaced with display fields, decimal prices are coerced to float64. These
// functions never mutate stored state; errors only propagate from reads.

// UserSummary is the public projection of a user.
type UserSummary struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Role  domain.UserRole `json:"role"`
	Name  string          `json:"name"`
}

// BidView is a bid enriched with its vendor's display name.
type BidView struct {
	ID            string           `json:"id"`
	RFQID         string           `json:"rfqId"`
	VendorID      string           `json:"vendorId"`
	VendorName    string           `json:"vendorName"`
	Price         float64          `json:"price"`
	Certification string           `json:"certification"`
	CertFile      string           `json:"certFile,omitempty"`
	Availability  string           `json:"availability,omitempty"`
	Status        domain.BidStatus `json:"status"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}

// RFQView is an RFQ enriched with equipment, client, and bid display data.
type RFQView struct {
	ID            string           `json:"id"`
	EquipmentID   string           `json:"equipmentId"`
	EquipmentName string           `json:"equipmentName"`
	ClientName    string           `json:"clientName"`
	Vendors       []string         `json:"vendors"`
	Bids          []BidView        `json:"bids"`
	Status        domain.RFQStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// RFQDetail is the single-RFQ response: raw entity plus its neighbors.
type RFQDetail struct {
	RFQ       domain.RFQ        `json:"rfq"`
	Equipment *domain.Equipment `json:"equipment"`
	Client    *UserSummary      `json:"client"`
	Bids      []domain.Bid      `json:"bids"`
}

// AdminBidView is the admin vetting projection of a bid.
type AdminBidView struct {
	ID            string           `json:"id"`
	VendorName    string           `json:"vendorName"`
	Price         float64          `json:"price"`
	CertFile      string           `json:"certFile,omitempty"`
	Availability  string           `json:"availability,omitempty"`
	EquipmentName string           `json:"equipmentName"`
	Status        domain.BidStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// PODetailsView is PODetails with the price coerced to float64.
type PODetailsView struct {
	PONumber    string    `json:"poNumber"`
	GeneratedAt time.Time `json:"generatedAt"`
	Price       float64   `json:"price"`
}

// OrderBidView nests the originating bid inside an order response.
type OrderBidView struct {
	ID           string           `json:"id"`
	Price        float64          `json:"price"`
	CertFile     string           `json:"certFile,omitempty"`
	Availability string           `json:"availability,omitempty"`
	Status       domain.BidStatus `json:"status"`
	RFQ          *OrderRFQView    `json:"rfq"`
}

// OrderRFQView nests the bid's RFQ and its equipment.
type OrderRFQView struct {
	ID        string            `json:"id"`
	Status    domain.RFQStatus  `json:"status"`
	Equipment *domain.Equipment `json:"equipment"`
}

// OrderView is an order with bid, RFQ, equipment, and both parties attached.
type OrderView struct {
	ID        string              `json:"id"`
	BidID     string              `json:"bidId"`
	ClientID  string              `json:"clientId"`
	VendorID  string              `json:"vendorId"`
	PODetails PODetailsView       `json:"poDetails"`
	Status    domain.OrderStatus  `json:"status"`
	History   []domain.OrderEvent `json:"history"`
	CreatedAt time.Time           `json:"createdAt"`
	Bid       *OrderBidView       `json:"bid"`
	Client    *UserSummary        `json:"client"`
	Vendor    *UserSummary        `json:"vendor"`
}

func userSummary(u domain.User) UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Role: u.Role, Name: u.Name}
}

// displayName falls back name -> email -> role literal.
func displayName(u domain.User, found bool, fallback string) string {
	if found {
		if u.Name != "" {
			return u.Name
		}
		if u.Email != "" {
			return u.Email
		}
	}
	return fallback
}

func (a *App) assembleBidViews(bids []domain.Bid) ([]BidView, error) {
	views := make([]BidView, 0, len(bids))
	for _, b := range bids {
		vendor, found, err := a.store.GetUserByID(b.VendorID)
		if err != nil {
			return nil, fmt.Errorf("fetch vendor: %w", err)
		}
		certification := "Missing"
		if b.CertFile != "" {
			certification = "Provided"
		}
		views = append(views, BidView{
			ID:            b.ID,
			RFQID:         b.RFQID,
			VendorID:      b.VendorID,
			VendorName:    displayName(vendor, found, "Vendor"),
			Price:         b.Price.InexactFloat64(),
			Certification: certification,
			CertFile:      b.CertFile,
			Availability:  b.Availability,
			Status:        b.Status,
			SubmittedAt:   b.CreatedAt,
		})
	}
	return views, nil
}

func (a *App) assembleRFQView(r domain.RFQ) (RFQView, error) {
	equipmentName := "Unknown"
	if equipment, found, err := a.store.GetEquipment(r.EquipmentID); err != nil {
		return RFQView{}, fmt.Errorf("fetch equipment: %w", err)
	} else if found {
		equipmentName = equipment.Name
	}
	client, found, err := a.store.GetUserByID(r.ClientID)
	if err != nil {
		return RFQView{}, fmt.Errorf("fetch client: %w", err)
	}
	bids, err := a.store.ListBidsByRFQ(r.ID)
	if err != nil {
		return RFQView{}, fmt.Errorf("list bids: %w", err)
	}
	bidViews, err := a.assembleBidViews(bids)
	if err != nil {
		return RFQView{}, err
	}
	return RFQView{
		ID:            r.ID,
		EquipmentID:   r.EquipmentID,
		EquipmentName: equipmentName,
		ClientName:    displayName(client, found, "Client"),
		Vendors:       r.VendorIDs,
		Bids:          bidViews,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func (a *App) assembleRFQDetail(r domain.RFQ) (RFQDetail, error) {
	detail := RFQDetail{RFQ: r, Bids: []domain.Bid{}}
	if equipment, found, err := a.store.GetEquipment(r.EquipmentID); err != nil {
		return RFQDetail{}, fmt.Errorf("fetch equipment: %w", err)
	} else if found {
		detail.Equipment = &equipment
	}
	if client, found, err := a.store.GetUserByID(r.ClientID); err != nil {
		return RFQDetail{}, fmt.Errorf("fetch client: %w", err)
	} else if found {
		summary := userSummary(client)
		detail.Client = &summary
	}
	bids, err := a.store.ListBidsByRFQ(r.ID)
	if err != nil {
		return RFQDetail{}, fmt.Errorf("list bids: %w", err)
	}
	detail.Bids = bids
	return detail, nil
}

func (a *App) assembleAdminBidViews(bids []domain.Bid) ([]AdminBidView, error) {
	views := make([]AdminBidView, 0, len(bids))
	for _, b := range bids {
		vendor, found, err := a.store.GetUserByID(b.VendorID)
		if err != nil {
			return nil, fmt.Errorf("fetch vendor: %w", err)
		}
		equipmentName := "Unknown"
		if rfq, rfqFound, err := a.store.GetRFQ(b.RFQID); err != nil {
			return nil, fmt.Errorf("fetch rfq: %w", err)
		} else if rfqFound {
			if equipment, eqFound, err := a.store.GetEquipment(rfq.EquipmentID); err != nil {
				return nil, fmt.Errorf("fetch equipment: %w", err)
			} else if eqFound {
				equipmentName = equipment.Name
			}
		}
		views = append(views, AdminBidView{
			ID:            b.ID,
			VendorName:    displayName(vendor, found, "Vendor"),
			Price:         b.Price.InexactFloat64(),
			CertFile:      b.CertFile,
			Availability:  b.Availability,
			EquipmentName: equipmentName,
			Status:        b.Status,
			CreatedAt:     b.CreatedAt,
		})
	}
	return views, nil
}

func (a *App) assembleOrderView(o domain.Order) (OrderView, error) {
	view := OrderView{
		ID:       o.ID,
		BidID:    o.BidID,
		ClientID: o.ClientID,
		VendorID: o.VendorID,
		PODetails: PODetailsView{
			PONumber:    o.PODetails.PONumber,
			GeneratedAt: o.PODetails.GeneratedAt,
			Price:       o.PODetails.Price.InexactFloat64(),
		},
		Status:    o.Status,
		History:   o.History,
		CreatedAt: o.CreatedAt,
	}
	if bid, found, err := a.store.GetBid(o.BidID); err != nil {
		return OrderView{}, fmt.Errorf("fetch bid: %w", err)
	} else if found {
		bidView := OrderBidView{
			ID:           bid.ID,
			Price:        bid.Price.InexactFloat64(),
			CertFile:     bid.CertFile,
			Availability: bid.Availability,
			Status:       bid.Status,
		}
		if rfq, rfqFound, err := a.store.GetRFQ(bid.RFQID); err != nil {
			return OrderView{}, fmt.Errorf("fetch rfq: %w", err)
		} else if rfqFound {
			rfqView := OrderRFQView{ID: rfq.ID, Status: rfq.Status}
			if equipment, eqFound, err := a.store.GetEquipment(rfq.EquipmentID); err != nil {
				return OrderView{}, fmt.Errorf("fetch equipment: %w", err)
			} else if eqFound {
				rfqView.Equipment = &equipment
			}
			bidView.RFQ = &rfqView
		}
		view.Bid = &bidView
	}
	if client, found, err := a.store.GetUserByID(o.ClientID); err != nil {
		return OrderView{}, fmt.Errorf("fetch client: %w", err)
	} else if found {
		summary := userSummary(client)
		view.Client = &summary
	}
	if vendor, found, err := a.store.GetUserByID(o.VendorID); err != nil {
		return OrderView{}, fmt.Errorf("fetch vendor: %w", err)
	} else if found {
		summary := userSummary(vendor)
		view.Vendor = &summary
	}
	return view, nil
}
