package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vibesense/vibesense/internal/config"
	"github.com/vibesense/vibesense/internal/database/migrations"
	"github.com/vibesense/vibesense/internal/logger"
)

// UserPreferences stores managed music preferences per user. The list
// columns hold JSON-encoded string arrays, matching the wire format the
// client sends.
type UserPreferences struct {
	gorm.Model
	UserID          string `gorm:"uniqueIndex"`
	PreferredGenres string
	AvoidGenres     string
	FavoriteArtists string
	Dislikes        string
	Notes           string
	EnergyProfile   string
}

// UserContext stores the last suggestion context per user so refinements
// can stay coherent across requests.
type UserContext struct {
	gorm.Model
	UserID        string `gorm:"uniqueIndex"`
	LastAction    string
	LastQuery     string
	LastReason    string
	LastIntensity float64
	LastActionAt  float64
}

func init() {
	// Readings for unscoped requests land on the "default" user; make sure
	// it always has a preferences row so GET /preferences never surprises
	// a fresh install.
	migrations.Register("001_seed_default_preferences", func(db *gorm.DB) error {
		prefs := UserPreferences{
			UserID:          "default",
			PreferredGenres: "[]",
			AvoidGenres:     "[]",
			FavoriteArtists: "[]",
			Dislikes:        "[]",
		}
		return db.Where(UserPreferences{UserID: "default"}).FirstOrCreate(&prefs).Error
	}, nil)
}

// NewPostgresDB opens the connection, migrates the schema and runs any
// registered data migrations.
func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&UserPreferences{}, &UserContext{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established and migrations completed")
	return db, nil
}
