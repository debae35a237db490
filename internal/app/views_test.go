package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vendorhub/pkg/domain"
)

func TestBidViewDisplayFallbacks(t *testing.T) {
	a, st := newTestApp(t)
	now := time.Now().UTC()

	// A vendor without a name falls back to email; a missing vendor row
	// falls back to the role literal.
	noName := domain.User{ID: "vendor-noname", Email: "noname@example.com", Role: domain.RoleVendor, CreatedAt: now, UpdatedAt: now}
	if err := st.SaveUser(noName); err != nil {
		t.Fatalf("save vendor: %v", err)
	}
	bids := []domain.Bid{
		{ID: "b1", RFQID: "r1", VendorID: "vendor-noname", Price: decimal.NewFromFloat(99.5), Status: domain.BidPending, CreatedAt: now},
		{ID: "b2", RFQID: "r1", VendorID: "vendor-gone", Price: decimal.NewFromInt(50), CertFile: "cert.pdf", Status: domain.BidPending, CreatedAt: now},
	}
	views, err := a.assembleBidViews(bids)
	if err != nil {
		t.Fatalf("assemble bid views: %v", err)
	}
	if views[0].VendorName != "noname@example.com" {
		t.Fatalf("expected email fallback, got %q", views[0].VendorName)
	}
	if views[1].VendorName != "Vendor" {
		t.Fatalf("expected role fallback, got %q", views[1].VendorName)
	}
	if views[0].Certification != "Missing" || views[1].Certification != "Provided" {
		t.Fatalf("certification flags wrong: %q / %q", views[0].Certification, views[1].Certification)
	}
	if views[0].Price != 99.5 {
		t.Fatalf("price not coerced: %v", views[0].Price)
	}
}

func TestRFQViewUnknownReferences(t *testing.T) {
	a, st := newTestApp(t)
	now := time.Now().UTC()
	rfq := domain.RFQ{
		ID: "r1", ClientID: "client-gone", EquipmentID: "eq-gone",
		VendorIDs: []string{"v1"}, Status: domain.RFQOpen,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := st.SaveRFQ(rfq); err != nil {
		t.Fatalf("save rfq: %v", err)
	}
	view, err := a.assembleRFQView(rfq)
	if err != nil {
		t.Fatalf("assemble rfq view: %v", err)
	}
	if view.EquipmentName != "Unknown" {
		t.Fatalf("expected Unknown equipment, got %q", view.EquipmentName)
	}
	if view.ClientName != "Client" {
		t.Fatalf("expected Client fallback, got %q", view.ClientName)
	}
	if len(view.Bids) != 0 {
		t.Fatalf("expected empty bid list, got %d", len(view.Bids))
	}
}
