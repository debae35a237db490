package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vendorhub/pkg/auth"
	"vendorhub/pkg/domain"
	"vendorhub/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration

	// Store and Tokens override the defaults built from the fields above.
	Store  store.Store
	Tokens *auth.TokenIssuer
}

// App is the procurement workflow: it owns the RFQ/Bid/Order lifecycle rules
// and the role gates on every mutation. Caller identity is always an explicit
// domain.User argument, never ambient request state.
type App struct {
	store  store.Store
	tokens *auth.TokenIssuer
}

// New constructs the application with database storage and token issuing.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		var err error
		tokens, err = auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("init token issuer: %w", err)
		}
	}
	return &App{store: dataStore, tokens: tokens}, nil
}

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Register creates an account. Role defaults to vendor.
func (a *App) Register(in RegisterInput) (domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return domain.User{}, validationErr("Missing fields")
	}
	role := domain.RoleVendor
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := ParseRole(in.Role)
		if !ok {
			return domain.User{}, validationErr("Invalid role")
		}
		role = parsed
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.User{}, validationErr(err.Error())
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, conflictErr("Email already registered")
	}
	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a bearer token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", validationErr("Missing fields")
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", authenticationErr("Invalid credentials")
	}
	token, err := a.tokens.Sign(user.ID, string(user.Role), user.Name)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a bearer token. The store lookup is
// authoritative: a stale token cannot carry a revoked or changed role.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(claims.Subject)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// ProfileInput carries the vendor profile fields.
type ProfileInput struct {
	CompanyName     string
	ContactName     string
	Phone           string
	Certifications  []string
	Categories      []string
	ExperienceYears int
}

// UpdateVendorProfile updates the caller's own vendor profile block.
func (a *App) UpdateVendorProfile(caller domain.User, in ProfileInput) (domain.User, error) {
	if caller.Role != domain.RoleVendor {
		return domain.User{}, authorizationErr("Forbidden")
	}
	if in.ExperienceYears < 0 {
		return domain.User{}, validationErr("Invalid experience years")
	}
	caller.CompanyName = strings.TrimSpace(in.CompanyName)
	caller.ContactName = strings.TrimSpace(in.ContactName)
	caller.Phone = strings.TrimSpace(in.Phone)
	caller.Certifications = normalizeList(in.Certifications)
	caller.Categories = normalizeList(in.Categories)
	caller.ExperienceYears = in.ExperienceYears
	caller.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(caller); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return caller, nil
}

// ListUsers returns public user summaries, optionally filtered by role.
func (a *App) ListUsers(role domain.UserRole) ([]UserSummary, error) {
	users, err := a.store.ListUsers(role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	res := make([]UserSummary, 0, len(users))
	for _, u := range users {
		res = append(res, userSummary(u))
	}
	return res, nil
}

// ListEquipment returns the catalog.
func (a *App) ListEquipment() ([]domain.Equipment, error) {
	return a.store.ListEquipment()
}

// CreateRFQ opens a new RFQ for the client against one equipment item.
// Vendor IDs are normalized at write time so later membership checks are
// plain equality.
func (a *App) CreateRFQ(caller domain.User, equipmentID string, vendorIDs []string) (domain.RFQ, error) {
	if caller.Role != domain.RoleClient {
		return domain.RFQ{}, authorizationErr("Forbidden")
	}
	equipmentID = strings.TrimSpace(equipmentID)
	vendors := normalizeList(vendorIDs)
	if equipmentID == "" || len(vendors) == 0 {
		return domain.RFQ{}, validationErr("Missing fields")
	}
	_, found, err := a.store.GetEquipment(equipmentID)
	if err != nil {
		return domain.RFQ{}, fmt.Errorf("fetch equipment: %w", err)
	}
	if !found {
		return domain.RFQ{}, validationErr("Invalid equipment")
	}
	now := time.Now().UTC()
	rfq := domain.RFQ{
		ID:          uuid.NewString(),
		ClientID:    caller.ID,
		EquipmentID: equipmentID,
		VendorIDs:   vendors,
		Status:      domain.RFQOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveRFQ(rfq); err != nil {
		return domain.RFQ{}, fmt.Errorf("save rfq: %w", err)
	}
	return rfq, nil
}

// ListRFQs returns enriched RFQs scoped by the caller's role: clients see
// their own, vendors see open RFQs they are invited to, admins see all.
func (a *App) ListRFQs(caller domain.User, status domain.RFQStatus) ([]RFQView, error) {
	var (
		rfqs []domain.RFQ
		err  error
	)
	switch caller.Role {
	case domain.RoleClient:
		rfqs, err = a.store.ListRFQsByClient(caller.ID, status)
	case domain.RoleVendor:
		rfqs, err = a.store.ListRFQs(domain.RFQOpen)
	case domain.RoleAdmin:
		rfqs, err = a.store.ListRFQs(status)
	default:
		return nil, authorizationErr("Forbidden")
	}
	if err != nil {
		return nil, fmt.Errorf("list rfqs: %w", err)
	}
	views := make([]RFQView, 0, len(rfqs))
	for _, r := range rfqs {
		if caller.Role == domain.RoleVendor {
			if !r.Invited(caller.ID) {
				continue
			}
			if status != "" && r.Status != status {
				continue
			}
		}
		view, err := a.assembleRFQView(r)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// GetRFQDetail returns one RFQ with its equipment, client, and raw bids.
func (a *App) GetRFQDetail(id string) (RFQDetail, error) {
	rfq, found, err := a.store.GetRFQ(strings.TrimSpace(id))
	if err != nil {
		return RFQDetail{}, fmt.Errorf("fetch rfq: %w", err)
	}
	if !found {
		return RFQDetail{}, notFoundErr("Not found")
	}
	return a.assembleRFQDetail(rfq)
}

// BidInput carries a vendor's bid submission.
type BidInput struct {
	RFQID        string
	Price        decimal.Decimal
	CertFile     string
	Availability string
}

// SubmitBid records a vendor's bid on an open RFQ. The vendor must be on the
// RFQ's invited list and may bid at most once per RFQ.
func (a *App) SubmitBid(caller domain.User, in BidInput) (domain.Bid, error) {
	if caller.Role != domain.RoleVendor {
		return domain.Bid{}, authorizationErr("Forbidden")
	}
	rfqID := strings.TrimSpace(in.RFQID)
	if rfqID == "" {
		return domain.Bid{}, validationErr("Missing fields")
	}
	if in.Price.LessThanOrEqual(decimal.Zero) {
		return domain.Bid{}, validationErr("Price must be positive")
	}
	rfq, found, err := a.store.GetRFQ(rfqID)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("fetch rfq: %w", err)
	}
	if !found {
		return domain.Bid{}, validationErr("Invalid RFQ")
	}
	if rfq.Status != domain.RFQOpen {
		return domain.Bid{}, validationErr("RFQ not open")
	}
	if !rfq.Invited(caller.ID) {
		return domain.Bid{}, authorizationErr("Vendor not invited to this RFQ")
	}
	already, err := a.store.HasVendorBid(rfqID, caller.ID)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("check existing bid: %w", err)
	}
	if already {
		return domain.Bid{}, conflictErr("Bid already submitted for this RFQ")
	}
	now := time.Now().UTC()
	bid := domain.Bid{
		ID:           uuid.NewString(),
		RFQID:        rfqID,
		VendorID:     caller.ID,
		Price:        in.Price,
		CertFile:     strings.TrimSpace(in.CertFile),
		Availability: strings.TrimSpace(in.Availability),
		Status:       domain.BidPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveBid(bid); err != nil {
		return domain.Bid{}, fmt.Errorf("save bid: %w", err)
	}
	return bid, nil
}

// ListBidsForRFQ returns vendor-name-enriched bids for one RFQ.
func (a *App) ListBidsForRFQ(rfqID string) ([]BidView, error) {
	bids, err := a.store.ListBidsByRFQ(strings.TrimSpace(rfqID))
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return a.assembleBidViews(bids)
}

// AdminListBids returns every bid with vendor and equipment names attached.
func (a *App) AdminListBids(caller domain.User) ([]AdminBidView, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, authorizationErr("Forbidden")
	}
	bids, err := a.store.ListBids()
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return a.assembleAdminBidViews(bids)
}

// ApproveBid marks a bid accepted as an admin vetting step. It does not
// transition the RFQ and does not create an order: order creation by the
// owning client is the sole authoritative RFQ transition.
func (a *App) ApproveBid(caller domain.User, bidID string) (domain.Bid, error) {
	return a.vetBid(caller, bidID, domain.BidAccepted)
}

// RejectBid marks a bid rejected as an admin vetting step.
func (a *App) RejectBid(caller domain.User, bidID string) (domain.Bid, error) {
	return a.vetBid(caller, bidID, domain.BidRejected)
}

func (a *App) vetBid(caller domain.User, bidID string, status domain.BidStatus) (domain.Bid, error) {
	if caller.Role != domain.RoleAdmin {
		return domain.Bid{}, authorizationErr("Forbidden")
	}
	bid, found, err := a.store.GetBid(strings.TrimSpace(bidID))
	if err != nil {
		return domain.Bid{}, fmt.Errorf("fetch bid: %w", err)
	}
	if !found {
		return domain.Bid{}, notFoundErr("Bid not found")
	}
	if bid.Status.Terminal() {
		return domain.Bid{}, validationErr("Bid already decided")
	}
	rfq, found, err := a.store.GetRFQ(bid.RFQID)
	if err != nil {
		return domain.Bid{}, fmt.Errorf("fetch rfq: %w", err)
	}
	if !found || rfq.Status != domain.RFQOpen {
		return domain.Bid{}, validationErr("RFQ not open")
	}
	if err := a.store.SetBidStatus(bid.ID, status); err != nil {
		return domain.Bid{}, fmt.Errorf("update bid: %w", err)
	}
	bid.Status = status
	return bid, nil
}

// CreateOrder turns an accepted bid into a purchase order. The store performs
// the three dependent writes (order insert, bid accept, RFQ close) as one
// transaction with re-validated preconditions, so two clients racing to
// accept bids on the same RFQ cannot both succeed.
func (a *App) CreateOrder(caller domain.User, bidID string) (domain.Order, error) {
	if caller.Role != domain.RoleClient {
		return domain.Order{}, authorizationErr("Forbidden")
	}
	bidID = strings.TrimSpace(bidID)
	if bidID == "" {
		return domain.Order{}, validationErr("Bid ID is required")
	}
	bid, found, err := a.store.GetBid(bidID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("fetch bid: %w", err)
	}
	if !found {
		return domain.Order{}, notFoundErr("Bid not found")
	}
	if bid.Status == domain.BidRejected {
		return domain.Order{}, validationErr("Bid already decided")
	}
	rfq, found, err := a.store.GetRFQ(bid.RFQID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("fetch rfq: %w", err)
	}
	if !found {
		return domain.Order{}, notFoundErr("Bid not found")
	}
	if rfq.ClientID != caller.ID {
		return domain.Order{}, authorizationErr("Unauthorized to create order for this bid")
	}
	now := time.Now().UTC()
	order := domain.Order{
		ID:       uuid.NewString(),
		BidID:    bid.ID,
		ClientID: caller.ID,
		VendorID: bid.VendorID,
		PODetails: domain.PODetails{
			PONumber:    fmt.Sprintf("PO-%d", now.UnixMilli()),
			GeneratedAt: now,
			Price:       bid.Price,
		},
		Status: domain.OrderPending,
		History: []domain.OrderEvent{
			{Status: domain.OrderPending, Date: now, Note: "PO Created"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateOrder(order); err != nil {
		switch {
		case errors.Is(err, store.ErrOrderExists):
			return domain.Order{}, conflictErr("Order already exists for this bid")
		case errors.Is(err, store.ErrBidRejected):
			return domain.Order{}, validationErr("Bid already decided")
		case errors.Is(err, store.ErrRFQNotOpen):
			return domain.Order{}, validationErr("RFQ not open")
		case errors.Is(err, store.ErrBidNotFound):
			return domain.Order{}, notFoundErr("Bid not found")
		default:
			return domain.Order{}, fmt.Errorf("create order: %w", err)
		}
	}
	return order, nil
}

// OrderHistory returns enriched orders scoped by role: clients see orders
// they placed, vendors see orders awarded to them, admins see all.
func (a *App) OrderHistory(caller domain.User) ([]OrderView, error) {
	var (
		orders []domain.Order
		err    error
	)
	switch caller.Role {
	case domain.RoleClient:
		orders, err = a.store.ListOrdersByClient(caller.ID)
	case domain.RoleVendor:
		orders, err = a.store.ListOrdersByVendor(caller.ID)
	case domain.RoleAdmin:
		orders, err = a.store.ListOrders()
	default:
		return nil, authorizationErr("Forbidden")
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		view, err := a.assembleOrderView(o)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ParseRole parses a role string.
func ParseRole(role string) (domain.UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(domain.RoleClient):
		return domain.RoleClient, true
	case string(domain.RoleVendor):
		return domain.RoleVendor, true
	case string(domain.RoleAdmin):
		return domain.RoleAdmin, true
	default:
		return "", false
	}
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
