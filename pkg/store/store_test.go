package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vendorhub/pkg/domain"
)

// runStoreSuite exercises the Store contract against an implementation.
// Both the memory and the SQL-backed stores must pass it unchanged.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Users", func(t *testing.T) {
		st := newStore(t)
		now := time.Now().UTC()
		client := domain.User{
			ID: "client-1", Email: "client@example.com", PasswordHash: "hash",
			Role: domain.RoleClient, Name: "Client A", CreatedAt: now, UpdatedAt: now,
		}
		vendor := domain.User{
			ID: "vendor-1", Email: "vendor@example.com", PasswordHash: "hash",
			Role: domain.RoleVendor, Name: "Vendor One", CreatedAt: now, UpdatedAt: now,
		}
		for _, u := range []domain.User{client, vendor} {
			if err := st.SaveUser(u); err != nil {
				t.Fatalf("save user %s: %v", u.ID, err)
			}
		}

		got, found, err := st.GetUserByEmail("client@example.com")
		if err != nil || !found {
			t.Fatalf("get by email: found=%v err=%v", found, err)
		}
		if got.ID != "client-1" || got.Role != domain.RoleClient {
			t.Fatalf("unexpected user: %+v", got)
		}
		if _, found, _ := st.GetUserByEmail("nobody@example.com"); found {
			t.Fatalf("expected miss for unknown email")
		}
		exists, err := st.HasUserEmail("vendor@example.com")
		if err != nil || !exists {
			t.Fatalf("expected email to exist: exists=%v err=%v", exists, err)
		}

		vendors, err := st.ListUsers(domain.RoleVendor)
		if err != nil {
			t.Fatalf("list vendors: %v", err)
		}
		if len(vendors) != 1 || vendors[0].ID != "vendor-1" {
			t.Fatalf("expected only vendor-1, got %+v", vendors)
		}
		all, err := st.ListUsers("")
		if err != nil || len(all) != 2 {
			t.Fatalf("expected 2 users, got %d (err=%v)", len(all), err)
		}
		count, err := st.UserCount()
		if err != nil || count != 2 {
			t.Fatalf("expected count 2, got %d (err=%v)", count, err)
		}

		// Upsert keeps a single row per ID.
		vendor.Name = "Vendor One Updated"
		vendor.CompanyName = "Heavy Iron Ltd"
		if err := st.SaveUser(vendor); err != nil {
			t.Fatalf("update user: %v", err)
		}
		updated, found, err := st.GetUserByID("vendor-1")
		if err != nil || !found {
			t.Fatalf("get updated vendor: found=%v err=%v", found, err)
		}
		if updated.Name != "Vendor One Updated" || updated.CompanyName != "Heavy Iron Ltd" {
			t.Fatalf("update not applied: %+v", updated)
		}
		if count, _ := st.UserCount(); count != 2 {
			t.Fatalf("upsert must not add rows, count=%d", count)
		}
	})

	t.Run("Equipment", func(t *testing.T) {
		st := newStore(t)
		eq := domain.Equipment{
			ID: "eq-1", Name: "Excavator 3000", Category: "Excavator",
			Specs:        map[string]string{"hp": "250", "weight": "30t"},
			CertRequired: true, RentalPeriod: 30, CreatedAt: time.Now().UTC(),
		}
		if err := st.SaveEquipment(eq); err != nil {
			t.Fatalf("save equipment: %v", err)
		}
		got, found, err := st.GetEquipment("eq-1")
		if err != nil || !found {
			t.Fatalf("get equipment: found=%v err=%v", found, err)
		}
		if got.Name != "Excavator 3000" || !got.CertRequired || got.Specs["hp"] != "250" {
			t.Fatalf("unexpected equipment: %+v", got)
		}
		list, err := st.ListEquipment()
		if err != nil || len(list) != 1 {
			t.Fatalf("expected 1 equipment, got %d (err=%v)", len(list), err)
		}
	})

	t.Run("RFQs", func(t *testing.T) {
		st := newStore(t)
		now := time.Now().UTC()
		open := domain.RFQ{
			ID: "rfq-1", ClientID: "client-1", EquipmentID: "eq-1",
			VendorIDs: []string{"vendor-1", "vendor-2"},
			Status:    domain.RFQOpen, CreatedAt: now, UpdatedAt: now,
		}
		closed := domain.RFQ{
			ID: "rfq-2", ClientID: "client-2", EquipmentID: "eq-1",
			VendorIDs: []string{"vendor-1"},
			Status:    domain.RFQClosed, CreatedAt: now, UpdatedAt: now,
		}
		for _, r := range []domain.RFQ{open, closed} {
			if err := st.SaveRFQ(r); err != nil {
				t.Fatalf("save rfq %s: %v", r.ID, err)
			}
		}

		got, found, err := st.GetRFQ("rfq-1")
		if err != nil || !found {
			t.Fatalf("get rfq: found=%v err=%v", found, err)
		}
		if len(got.VendorIDs) != 2 || !got.Invited("vendor-2") {
			t.Fatalf("vendor list lost: %+v", got)
		}

		openOnly, err := st.ListRFQs(domain.RFQOpen)
		if err != nil || len(openOnly) != 1 || openOnly[0].ID != "rfq-1" {
			t.Fatalf("expected only rfq-1 open, got %+v (err=%v)", openOnly, err)
		}
		all, err := st.ListRFQs("")
		if err != nil || len(all) != 2 {
			t.Fatalf("expected 2 rfqs, got %d (err=%v)", len(all), err)
		}
		byClient, err := st.ListRFQsByClient("client-2", "")
		if err != nil || len(byClient) != 1 || byClient[0].ID != "rfq-2" {
			t.Fatalf("expected rfq-2 for client-2, got %+v (err=%v)", byClient, err)
		}
		if rfqs, _ := st.ListRFQsByClient("client-2", domain.RFQOpen); len(rfqs) != 0 {
			t.Fatalf("client-2 has no open rfqs, got %+v", rfqs)
		}
	})

	t.Run("Bids", func(t *testing.T) {
		st := newStore(t)
		now := time.Now().UTC()
		bid := domain.Bid{
			ID: "bid-1", RFQID: "rfq-1", VendorID: "vendor-1",
			Price: decimal.NewFromInt(1200), CertFile: "cert.pdf",
			Availability: "2 weeks", Status: domain.BidPending,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := st.SaveBid(bid); err != nil {
			t.Fatalf("save bid: %v", err)
		}
		other := bid
		other.ID = "bid-2"
		other.RFQID = "rfq-2"
		other.VendorID = "vendor-2"
		if err := st.SaveBid(other); err != nil {
			t.Fatalf("save second bid: %v", err)
		}

		got, found, err := st.GetBid("bid-1")
		if err != nil || !found {
			t.Fatalf("get bid: found=%v err=%v", found, err)
		}
		if !got.Price.Equal(decimal.NewFromInt(1200)) {
			t.Fatalf("price lost precision: %s", got.Price)
		}
		byRFQ, err := st.ListBidsByRFQ("rfq-1")
		if err != nil || len(byRFQ) != 1 || byRFQ[0].ID != "bid-1" {
			t.Fatalf("expected bid-1 for rfq-1, got %+v (err=%v)", byRFQ, err)
		}
		all, err := st.ListBids()
		if err != nil || len(all) != 2 {
			t.Fatalf("expected 2 bids, got %d (err=%v)", len(all), err)
		}

		has, err := st.HasVendorBid("rfq-1", "vendor-1")
		if err != nil || !has {
			t.Fatalf("expected vendor-1 bid on rfq-1: has=%v err=%v", has, err)
		}
		if has, _ := st.HasVendorBid("rfq-1", "vendor-2"); has {
			t.Fatalf("vendor-2 has not bid on rfq-1")
		}

		if err := st.SetBidStatus("bid-1", domain.BidRejected); err != nil {
			t.Fatalf("set bid status: %v", err)
		}
		rejected, _, _ := st.GetBid("bid-1")
		if rejected.Status != domain.BidRejected {
			t.Fatalf("expected rejected, got %s", rejected.Status)
		}
	})

	t.Run("CreateOrder", func(t *testing.T) {
		st := newStore(t)
		seedAcceptScenario(t, st, "rfq-1", "bid-1")

		order := orderForBid("order-1", "bid-1")
		if err := st.CreateOrder(order); err != nil {
			t.Fatalf("create order: %v", err)
		}

		rfq, _, _ := st.GetRFQ("rfq-1")
		if rfq.Status != domain.RFQClosed {
			t.Fatalf("expected rfq closed, got %s", rfq.Status)
		}
		bid, _, _ := st.GetBid("bid-1")
		if bid.Status != domain.BidAccepted {
			t.Fatalf("expected bid accepted, got %s", bid.Status)
		}
		stored, found, err := st.GetOrderByBid("bid-1")
		if err != nil || !found {
			t.Fatalf("get order by bid: found=%v err=%v", found, err)
		}
		if stored.PODetails.PONumber != "PO-1" || len(stored.History) != 1 {
			t.Fatalf("order payload lost: %+v", stored)
		}
		if stored.History[0].Note != "PO Created" {
			t.Fatalf("unexpected history: %+v", stored.History)
		}

		byClient, err := st.ListOrdersByClient("client-1")
		if err != nil || len(byClient) != 1 {
			t.Fatalf("expected 1 client order, got %d (err=%v)", len(byClient), err)
		}
		byVendor, err := st.ListOrdersByVendor("vendor-1")
		if err != nil || len(byVendor) != 1 {
			t.Fatalf("expected 1 vendor order, got %d (err=%v)", len(byVendor), err)
		}
	})

	t.Run("CreateOrderDuplicate", func(t *testing.T) {
		st := newStore(t)
		seedAcceptScenario(t, st, "rfq-1", "bid-1")
		if err := st.CreateOrder(orderForBid("order-1", "bid-1")); err != nil {
			t.Fatalf("first create order: %v", err)
		}
		err := st.CreateOrder(orderForBid("order-2", "bid-1"))
		if !errors.Is(err, ErrOrderExists) && !errors.Is(err, ErrRFQNotOpen) {
			t.Fatalf("expected duplicate rejection, got %v", err)
		}
	})

	t.Run("CreateOrderClosedRFQ", func(t *testing.T) {
		st := newStore(t)
		seedAcceptScenario(t, st, "rfq-1", "bid-1")
		rfq, _, _ := st.GetRFQ("rfq-1")
		rfq.Status = domain.RFQClosed
		if err := st.SaveRFQ(rfq); err != nil {
			t.Fatalf("close rfq: %v", err)
		}
		if err := st.CreateOrder(orderForBid("order-1", "bid-1")); !errors.Is(err, ErrRFQNotOpen) {
			t.Fatalf("expected ErrRFQNotOpen, got %v", err)
		}
	})

	t.Run("CreateOrderRejectedBid", func(t *testing.T) {
		st := newStore(t)
		seedAcceptScenario(t, st, "rfq-1", "bid-1")
		if err := st.SetBidStatus("bid-1", domain.BidRejected); err != nil {
			t.Fatalf("reject bid: %v", err)
		}
		if err := st.CreateOrder(orderForBid("order-1", "bid-1")); !errors.Is(err, ErrBidRejected) {
			t.Fatalf("expected ErrBidRejected, got %v", err)
		}
		bid, _, _ := st.GetBid("bid-1")
		if bid.Status != domain.BidRejected {
			t.Fatalf("rejected bid must stay rejected, got %s", bid.Status)
		}
		rfq, _, _ := st.GetRFQ("rfq-1")
		if rfq.Status != domain.RFQOpen {
			t.Fatalf("rfq must stay open, got %s", rfq.Status)
		}
		if _, found, _ := st.GetOrderByBid("bid-1"); found {
			t.Fatalf("no order must exist for a rejected bid")
		}
	})

	t.Run("CreateOrderMissingBid", func(t *testing.T) {
		st := newStore(t)
		if err := st.CreateOrder(orderForBid("order-1", "bid-missing")); !errors.Is(err, ErrBidNotFound) {
			t.Fatalf("expected ErrBidNotFound, got %v", err)
		}
	})
}

// seedAcceptScenario stores one open RFQ with one pending bid on it.
func seedAcceptScenario(t *testing.T, st Store, rfqID, bidID string) {
	t.Helper()
	now := time.Now().UTC()
	rfq := domain.RFQ{
		ID: rfqID, ClientID: "client-1", EquipmentID: "eq-1",
		VendorIDs: []string{"vendor-1"},
		Status:    domain.RFQOpen, CreatedAt: now, UpdatedAt: now,
	}
	if err := st.SaveRFQ(rfq); err != nil {
		t.Fatalf("seed rfq: %v", err)
	}
	bid := domain.Bid{
		ID: bidID, RFQID: rfqID, VendorID: "vendor-1",
		Price: decimal.NewFromInt(1500), Status: domain.BidPending,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := st.SaveBid(bid); err != nil {
		t.Fatalf("seed bid: %v", err)
	}
}

func orderForBid(orderID, bidID string) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID: orderID, BidID: bidID, ClientID: "client-1", VendorID: "vendor-1",
		PODetails: domain.PODetails{
			PONumber:    "PO-1",
			GeneratedAt: now,
			Price:       decimal.NewFromInt(1500),
		},
		Status:    domain.OrderPending,
		History:   []domain.OrderEvent{{Status: domain.OrderPending, Date: now, Note: "PO Created"}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
