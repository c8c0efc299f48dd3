package models

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables for every marketplace entity
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Profile{},
		&Provider{},
		&Service{},
		&ProviderService{},
		&Booking{},
		&Review{},
		&Report{},
	)
}

// DefaultServices is the catalog seeded on start-up
var DefaultServices = []Service{
	{Name: "plumbing", DisplayName: "Plumbing"},
	{Name: "drain-cleaning", DisplayName: "Drain Cleaning"},
	{Name: "water-heater", DisplayName: "Water Heater"},
	{Name: "pipe-repair", DisplayName: "Pipe Repair"},
	{Name: "electrical", DisplayName: "Electrical"},
	{Name: "wiring", DisplayName: "Wiring"},
	{Name: "lighting", DisplayName: "Lighting"},
	{Name: "locksmith", DisplayName: "Locksmith"},
	{Name: "security", DisplayName: "Security"},
	{Name: "computer-repair", DisplayName: "Computer Repair"},
	{Name: "it-support", DisplayName: "IT Support"},
}

// SeedServices inserts any catalog entry that is missing, matched by name.
// Existing rows are left untouched so admins can edit them.
func SeedServices(db *gorm.DB) error {
	for _, svc := range DefaultServices {
		svc.IsActive = true
		if err := db.Where(Service{Name: svc.Name}).FirstOrCreate(&svc).Error; err != nil {
			return errors.Wrapf(err, "failed to seed service %s", svc.Name)
		}
	}
	return nil
}
