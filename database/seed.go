package database

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/model"
	"github.com/sahilchouksey/elms-api/utils/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Info("Starting database seeding...")

	if err := s.SeedTaxonomy(); err != nil {
		return fmt.Errorf("failed to seed taxonomy: %w", err)
	}

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Info("Database seeding completed successfully!")
	return nil
}

var (
	defaultCategories = []model.Category{
		{Name: "Development", Icon: "fa-code"},
		{Name: "Business", Icon: "fa-briefcase"},
		{Name: "Design", Icon: "fa-paint-brush"},
		{Name: "Marketing", Icon: "fa-bullhorn"},
		{Name: "Photography", Icon: "fa-camera"},
		{Name: "Music", Icon: "fa-music"},
	}
	defaultLevels    = []string{"Beginner", "Intermediate", "Advanced"}
	defaultLanguages = []string{"English", "Hindi"}
)

// SeedTaxonomy inserts categories, levels and languages. Existing names are kept as is.
func (s *Seeder) SeedTaxonomy() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		categories := append([]model.Category(nil), defaultCategories...)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
			return err
		}

		levels := make([]model.Level, 0, len(defaultLevels))
		for _, name := range defaultLevels {
			levels = append(levels, model.Level{Name: name})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&levels).Error; err != nil {
			return err
		}

		languages := make([]model.Language, 0, len(defaultLanguages))
		for _, name := range defaultLanguages {
			languages = append(languages, model.Language{Name: name})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&languages).Error
	})
}

// SeedAdminUser creates the bootstrap admin from ADMIN_EMAIL / ADMIN_PASSWORD
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Info("Admin user already exists, skipping...")
		return nil
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Username:     getEnvOrDefault("ADMIN_USERNAME", "admin"),
		Email:        adminEmail,
		FirstName:    "System",
		LastName:     "Administrator",
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(admin).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("a user with username %q or email %q already exists", admin.Username, admin.Email)
			}
			return err
		}
		return tx.Create(&model.AdminProfile{UserID: admin.ID}).Error
	})
	if err != nil {
		return err
	}

	log.Infof("Created admin user: %s", admin.Email)
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
