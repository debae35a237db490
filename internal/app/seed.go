package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vendorhub/pkg/auth"
	"vendorhub/pkg/domain"
)

const demoPassword = "password123"

// SeedDemo populates a fresh database with demo accounts and an
// equipment catalogue. It is a no-op when any user already exists, so
// restarts do not duplicate rows.
func (a *App) SeedDemo(logger *slog.Logger) error {
	count, err := a.store.UserCount()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		logger.Info("demo seed skipped, users already present", "count", count)
		return nil
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	now := time.Now().UTC()

	users := []domain.User{
		{Email: "vendor1@example.com", Role: domain.RoleVendor, Name: "Vendor One"},
		{Email: "vendor2@example.com", Role: domain.RoleVendor, Name: "Vendor Two"},
		{Email: "vendor3@example.com", Role: domain.RoleVendor, Name: "Vendor Three"},
		{Email: "client@example.com", Role: domain.RoleClient, Name: "Client A"},
		{Email: "admin@example.com", Role: domain.RoleAdmin, Name: "Admin"},
	}
	for _, u := range users {
		u.ID = uuid.NewString()
		u.PasswordHash = hash
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := a.store.SaveUser(u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	equipments := []domain.Equipment{
		{Name: "Excavator 3000", Category: "Excavator", Specs: map[string]string{"hp": "250", "weight": "30t"}, CertRequired: true, RentalPeriod: 30},
		{Name: "Crane Pro X", Category: "Crane", Specs: map[string]string{"capacity": "20t", "reach": "40m"}, CertRequired: true, RentalPeriod: 14},
		{Name: "Forklift 2t", Category: "Forklift", Specs: map[string]string{"capacity": "2t"}, CertRequired: false, RentalPeriod: 7},
		{Name: "Bulldozer B7", Category: "Dozer", Specs: map[string]string{"hp": "180"}, CertRequired: false, RentalPeriod: 21},
		{Name: "Concrete Mixer 500", Category: "Mixer", Specs: map[string]string{"volume": "500L"}, CertRequired: false, RentalPeriod: 10},
	}
	for _, e := range equipments {
		e.ID = uuid.NewString()
		e.CreatedAt = now
		if err := a.store.SaveEquipment(e); err != nil {
			return fmt.Errorf("seed equipment %s: %w", e.Name, err)
		}
	}

	logger.Info("demo data seeded", "users", len(users), "equipments", len(equipments))
	return nil
}
