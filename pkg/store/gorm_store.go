package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"vendorhub/pkg/domain"
)

const migrateLockID int64 = 52105210

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent replicas do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		return autoMigrate(tx)
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreWithDB wraps an already-open gorm handle and migrates it.
// Tests use this with an in-memory SQLite dialector.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserModel{}, &EquipmentModel{}, &RFQModel{}, &BidModel{}, &OrderModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "password_hash", "role", "name",
			"company_name", "contact_name", "phone",
			"certifications", "categories", "rating",
			"orders_count", "experience_years", "updated_at",
		}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns users ordered by created_at, optionally filtered by role.
func (s *GormStore) ListUsers(role domain.UserRole) ([]domain.User, error) {
	var models []UserModel
	tx := s.db.Order("created_at ASC")
	if role != "" {
		tx = tx.Where("role = ?", string(role))
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveEquipment stores a catalog entry.
func (s *GormStore) SaveEquipment(e domain.Equipment) error {
	model := equipmentToModel(e)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&model).Error
}

// GetEquipment retrieves a catalog entry.
func (s *GormStore) GetEquipment(id string) (domain.Equipment, bool, error) {
	var model EquipmentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Equipment{}, false, nil
		}
		return domain.Equipment{}, false, err
	}
	return equipmentFromModel(model), true, nil
}

// ListEquipment returns the catalog ordered by created_at.
func (s *GormStore) ListEquipment() ([]domain.Equipment, error) {
	var models []EquipmentModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Equipment, 0, len(models))
	for _, m := range models {
		res = append(res, equipmentFromModel(m))
	}
	return res, nil
}

// SaveRFQ stores or updates an RFQ.
func (s *GormStore) SaveRFQ(r domain.RFQ) error {
	model := rfqToModel(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vendor_ids", "status", "updated_at"}),
	}).Create(&model).Error
}

// GetRFQ retrieves an RFQ.
func (s *GormStore) GetRFQ(id string) (domain.RFQ, bool, error) {
	var model RFQModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RFQ{}, false, nil
		}
		return domain.RFQ{}, false, err
	}
	return rfqFromModel(model), true, nil
}

// ListRFQs returns RFQs newest first, optionally filtered by status.
func (s *GormStore) ListRFQs(status domain.RFQStatus) ([]domain.RFQ, error) {
	return s.listRFQs(status)
}

// ListRFQsByClient returns one client's RFQs newest first.
func (s *GormStore) ListRFQsByClient(clientID string, status domain.RFQStatus) ([]domain.RFQ, error) {
	return s.listRFQs(status, "client_id = ?", clientID)
}

func (s *GormStore) listRFQs(status domain.RFQStatus, conds ...any) ([]domain.RFQ, error) {
	var models []RFQModel
	tx := s.db.Order("created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RFQ, 0, len(models))
	for _, m := range models {
		res = append(res, rfqFromModel(m))
	}
	return res, nil
}

// SaveBid stores or updates a bid.
func (s *GormStore) SaveBid(b domain.Bid) error {
	model := bidToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "cert_file", "availability", "status", "updated_at"}),
	}).Create(&model).Error
}

// GetBid retrieves a bid.
func (s *GormStore) GetBid(id string) (domain.Bid, bool, error) {
	var model BidModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Bid{}, false, nil
		}
		return domain.Bid{}, false, err
	}
	return bidFromModel(model), true, nil
}

// ListBidsByRFQ returns bids for an RFQ in submission order.
func (s *GormStore) ListBidsByRFQ(rfqID string) ([]domain.Bid, error) {
	var models []BidModel
	if err := s.db.Where("rfq_id = ?", rfqID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Bid, 0, len(models))
	for _, m := range models {
		res = append(res, bidFromModel(m))
	}
	return res, nil
}

// ListBids returns all bids newest first.
func (s *GormStore) ListBids() ([]domain.Bid, error) {
	var models []BidModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Bid, 0, len(models))
	for _, m := range models {
		res = append(res, bidFromModel(m))
	}
	return res, nil
}

// HasVendorBid checks whether the vendor already bid on the RFQ.
func (s *GormStore) HasVendorBid(rfqID, vendorID string) (bool, error) {
	var count int64
	if err := s.db.Model(&BidModel{}).
		Where("rfq_id = ? AND vendor_id = ?", rfqID, vendorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetBidStatus updates a bid's status.
func (s *GormStore) SetBidStatus(id string, status domain.BidStatus) error {
	return s.db.Model(&BidModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

// CreateOrder inserts the order and flips bid/RFQ status in one transaction.
// Preconditions, including that the bid was not rejected, are re-checked
// inside the transaction; the RFQ close is a guarded update so only one
// concurrent accept can win, and the unique index on bid_id backstops
// duplicate orders.
func (s *GormStore) CreateOrder(o domain.Order) error {
	model, err := orderToModel(o)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var bid BidModel
		if err := tx.First(&bid, "id = ?", o.BidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBidNotFound
			}
			return err
		}
		if bid.Status == string(domain.BidRejected) {
			return ErrBidRejected
		}
		var count int64
		if err := tx.Model(&OrderModel{}).Where("bid_id = ?", o.BidID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrOrderExists
		}
		res := tx.Model(&RFQModel{}).
			Where("id = ? AND status = ?", bid.RFQID, string(domain.RFQOpen)).
			Updates(map[string]any{"status": string(domain.RFQClosed), "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRFQNotOpen
		}
		if err := tx.Model(&BidModel{}).
			Where("id = ?", o.BidID).
			Updates(map[string]any{"status": string(domain.BidAccepted), "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if errors.Is(txErr, gorm.ErrDuplicatedKey) {
		return ErrOrderExists
	}
	return txErr
}

// GetOrderByBid returns the order referencing a bid, if any.
func (s *GormStore) GetOrderByBid(bidID string) (domain.Order, bool, error) {
	var model OrderModel
	if err := s.db.Where("bid_id = ?", bidID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}
	return orderFromModel(model), true, nil
}

// ListOrders returns all orders newest first.
func (s *GormStore) ListOrders() ([]domain.Order, error) {
	return s.listOrders()
}

// ListOrdersByClient returns a client's orders newest first.
func (s *GormStore) ListOrdersByClient(clientID string) ([]domain.Order, error) {
	return s.listOrders("client_id = ?", clientID)
}

// ListOrdersByVendor returns a vendor's orders newest first.
func (s *GormStore) ListOrdersByVendor(vendorID string) ([]domain.Order, error) {
	return s.listOrders("vendor_id = ?", vendorID)
}

func (s *GormStore) listOrders(conds ...any) ([]domain.Order, error) {
	var models []OrderModel
	tx := s.db.Order("created_at DESC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Order, 0, len(models))
	for _, m := range models {
		res = append(res, orderFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	certs, _ := json.Marshal(u.Certifications)
	cats, _ := json.Marshal(u.Categories)
	return UserModel{
		ID:              u.ID,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Role:            string(u.Role),
		Name:            u.Name,
		CompanyName:     u.CompanyName,
		ContactName:     u.ContactName,
		Phone:           u.Phone,
		Certifications:  certs,
		Categories:      cats,
		Rating:          u.Rating,
		OrdersCount:     u.OrdersCount,
		ExperienceYears: u.ExperienceYears,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	var certs, cats []string
	if len(m.Certifications) > 0 {
		_ = json.Unmarshal(m.Certifications, &certs)
	}
	if len(m.Categories) > 0 {
		_ = json.Unmarshal(m.Categories, &cats)
	}
	return domain.User{
		ID:              m.ID,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		Role:            domain.UserRole(m.Role),
		Name:            m.Name,
		CompanyName:     m.CompanyName,
		ContactName:     m.ContactName,
		Phone:           m.Phone,
		Certifications:  certs,
		Categories:      cats,
		Rating:          m.Rating,
		OrdersCount:     m.OrdersCount,
		ExperienceYears: m.ExperienceYears,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func equipmentToModel(e domain.Equipment) EquipmentModel {
	specs, _ := json.Marshal(e.Specs)
	return EquipmentModel{
		ID:           e.ID,
		Name:         e.Name,
		Category:     e.Category,
		Specs:        specs,
		CertRequired: e.CertRequired,
		RentalPeriod: e.RentalPeriod,
		CreatedAt:    e.CreatedAt,
	}
}

func equipmentFromModel(m EquipmentModel) domain.Equipment {
	var specs map[string]string
	if len(m.Specs) > 0 {
		_ = json.Unmarshal(m.Specs, &specs)
	}
	return domain.Equipment{
		ID:           m.ID,
		Name:         m.Name,
		Category:     m.Category,
		Specs:        specs,
		CertRequired: m.CertRequired,
		RentalPeriod: m.RentalPeriod,
		CreatedAt:    m.CreatedAt,
	}
}

func rfqToModel(r domain.RFQ) RFQModel {
	vendors, _ := json.Marshal(r.VendorIDs)
	return RFQModel{
		ID:          r.ID,
		ClientID:    r.ClientID,
		EquipmentID: r.EquipmentID,
		VendorIDs:   vendors,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func rfqFromModel(m RFQModel) domain.RFQ {
	var vendors []string
	if len(m.VendorIDs) > 0 {
		_ = json.Unmarshal(m.VendorIDs, &vendors)
	}
	return domain.RFQ{
		ID:          m.ID,
		ClientID:    m.ClientID,
		EquipmentID: m.EquipmentID,
		VendorIDs:   vendors,
		Status:      domain.RFQStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func bidToModel(b domain.Bid) BidModel {
	return BidModel{
		ID:           b.ID,
		RFQID:        b.RFQID,
		VendorID:     b.VendorID,
		Price:        b.Price,
		CertFile:     b.CertFile,
		Availability: b.Availability,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func bidFromModel(m BidModel) domain.Bid {
	return domain.Bid{
		ID:           m.ID,
		RFQID:        m.RFQID,
		VendorID:     m.VendorID,
		Price:        m.Price,
		CertFile:     m.CertFile,
		Availability: m.Availability,
		Status:       domain.BidStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func orderToModel(o domain.Order) (OrderModel, error) {
	po, err := json.Marshal(o.PODetails)
	if err != nil {
		return OrderModel{}, fmt.Errorf("marshal po details: %w", err)
	}
	history, err := json.Marshal(o.History)
	if err != nil {
		return OrderModel{}, fmt.Errorf("marshal order history: %w", err)
	}
	return OrderModel{
		ID:        o.ID,
		BidID:     o.BidID,
		ClientID:  o.ClientID,
		VendorID:  o.VendorID,
		PODetails: po,
		Status:    string(o.Status),
		History:   history,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}, nil
}

func orderFromModel(m OrderModel) domain.Order {
	var po domain.PODetails
	if len(m.PODetails) > 0 {
		_ = json.Unmarshal(m.PODetails, &po)
	}
	var history []domain.OrderEvent
	if len(m.History) > 0 {
		_ = json.Unmarshal(m.History, &history)
	}
	return domain.Order{
		ID:        m.ID,
		BidID:     m.BidID,
		ClientID:  m.ClientID,
		VendorID:  m.VendorID,
		PODetails: po,
		Status:    domain.OrderStatus(m.Status),
		History:   history,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
