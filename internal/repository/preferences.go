package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/vibesense/vibesense/internal/database"
	"github.com/vibesense/vibesense/internal/domain"
	apperrors "github.com/vibesense/vibesense/internal/errors"
)

// PreferencesRepository handles user music preference records.
type PreferencesRepository struct {
	db *gorm.DB
}

// NewPreferencesRepository creates a new preferences repository.
func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Get returns the stored preferences for a user, or (nil, nil) when the
// user has none yet.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*domain.Preferences, error) {
	var record database.UserPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	prefs := domain.Preferences{
		PreferredGenres: decodeList(record.PreferredGenres),
		AvoidGenres:     decodeList(record.AvoidGenres),
		FavoriteArtists: decodeList(record.FavoriteArtists),
		Dislikes:        decodeList(record.Dislikes),
		Notes:           record.Notes,
		EnergyProfile:   record.EnergyProfile,
	}
	return &prefs, nil
}

// Set upserts the preferences for a user and returns the saved record.
func (r *PreferencesRepository) Set(ctx context.Context, userID string, prefs domain.Preferences) (*domain.Preferences, error) {
	record := database.UserPreferences{
		UserID:          userID,
		PreferredGenres: encodeList(prefs.PreferredGenres),
		AvoidGenres:     encodeList(prefs.AvoidGenres),
		FavoriteArtists: encodeList(prefs.FavoriteArtists),
		Dislikes:        encodeList(prefs.Dislikes),
		Notes:           prefs.Notes,
		EnergyProfile:   prefs.EnergyProfile,
	}

	err := r.db.WithContext(ctx).
		Where(database.UserPreferences{UserID: userID}).
		Assign(record).
		FirstOrCreate(&database.UserPreferences{}).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError(err).WithContext("user_id", userID)
	}

	saved := prefs
	saved.PreferredGenres = normalizeList(prefs.PreferredGenres)
	saved.AvoidGenres = normalizeList(prefs.AvoidGenres)
	saved.FavoriteArtists = normalizeList(prefs.FavoriteArtists)
	saved.Dislikes = normalizeList(prefs.Dislikes)
	return &saved, nil
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}
	}
	return values
}

func normalizeList(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
