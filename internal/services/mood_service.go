package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/vibesense/vibesense/internal/config"
	"github.com/vibesense/vibesense/internal/domain"
	"github.com/vibesense/vibesense/internal/utils"
)

// zoneProfile is the deterministic default for a heart-rate zone: the mood
// label, the playback action, the fallback search query and the intensity
// band the smoothed bpm is interpolated into.
type zoneProfile struct {
	mood        string
	action      string
	baseQuery   string
	intensityLo float64
	intensityHi float64
}

var zoneProfiles = map[domain.Zone]zoneProfile{
	domain.ZoneResting:  {mood: "relaxed", action: "play_playlist", baseQuery: "acoustic chill instrumental focus", intensityLo: 0.0, intensityHi: 0.2},
	domain.ZoneLight:    {mood: "focused", action: "play_playlist", baseQuery: "lofi steady focus beats", intensityLo: 0.2, intensityHi: 0.5},
	domain.ZoneModerate: {mood: "upbeat", action: "play_playlist", baseQuery: "upbeat pop indie groove", intensityLo: 0.5, intensityHi: 0.75},
	domain.ZoneVigorous: {mood: "hype", action: "play_track", baseQuery: "high energy workout bangers", intensityLo: 0.75, intensityHi: 0.9},
	domain.ZonePeak:     {mood: "intense", action: "play_track", baseQuery: "max intensity edm anthems", intensityLo: 0.9, intensityHi: 1.0},
}

// MoodService maps a stabilized heart state plus optional self-report and
// preferences to a draft suggestion.
type MoodService struct {
	cfg config.HeartConfig
}

// NewMoodService creates a classifier using the configured zone thresholds.
func NewMoodService(cfg config.HeartConfig) *MoodService {
	return &MoodService{cfg: cfg}
}

// Classify produces the deterministic draft for a heart state. A non-empty
// self-reported mood wins the mood label; the measured signal always wins
// the intensity.
func (s *MoodService) Classify(heart domain.HeartState, prefs *domain.Preferences) domain.DraftSuggestion {
	profile := zoneProfileFor(heart.Zone)
	intensity := s.Intensity(heart.Zone, heart.SmoothedBPM)

	mood := profile.mood
	if reported := strings.TrimSpace(heart.LastReading.ReportedMood); reported != "" {
		mood = reported
	}

	query := profile.baseQuery
	reason := fmt.Sprintf("%.0f bpm in %s zone, %s vibe", heart.SmoothedBPM, heart.Zone, mood)

	if genre := pickGenre(prefs); genre != "" {
		query = genre + " " + query
		reason += fmt.Sprintf(", leaning %s", genre)
	}

	if heart.Zone == domain.ZoneVigorous || heart.Zone == domain.ZonePeak {
		reason += ", cooldown recommended"
	}

	reason += fmt.Sprintf(" [%s]", utils.TimeOfDayBucket(time.Now()))

	return domain.DraftSuggestion{
		Mood:            mood,
		Intensity:       intensity,
		SuggestedAction: profile.action,
		SearchQuery:     query,
		Reason:          reason,
	}
}

// Intensity interpolates the smoothed bpm linearly inside its zone's
// intensity band, so the client gets a continuous energy signal rather
// than five steps. Monotonically non-decreasing in bpm.
func (s *MoodService) Intensity(zone domain.Zone, bpm float64) float64 {
	profile := zoneProfileFor(zone)
	lo, hi := s.bpmRange(zone)

	frac := (bpm - lo) / (hi - lo)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return profile.intensityLo + frac*(profile.intensityHi-profile.intensityLo)
}

// bpmRange returns the bpm sub-range a zone spans. The open ends of the
// resting and peak zones are closed off by the plausible band limits.
func (s *MoodService) bpmRange(zone domain.Zone) (float64, float64) {
	switch zone {
	case domain.ZoneResting:
		return s.cfg.MinBPM, s.cfg.LightAt
	case domain.ZoneLight:
		return s.cfg.LightAt, s.cfg.ModerateAt
	case domain.ZoneModerate:
		return s.cfg.ModerateAt, s.cfg.VigorousAt
	case domain.ZoneVigorous:
		return s.cfg.VigorousAt, s.cfg.PeakAt
	default:
		return s.cfg.PeakAt, s.cfg.MaxBPM
	}
}

func zoneProfileFor(zone domain.Zone) zoneProfile {
	if profile, ok := zoneProfiles[zone]; ok {
		return profile
	}
	return zoneProfiles[domain.ZoneResting]
}

// pickGenre returns the first preferred genre that the user does not also
// avoid. Preferences only color the query and reason, never the mood or
// intensity.
func pickGenre(prefs *domain.Preferences) string {
	if prefs == nil {
		return ""
	}

	avoided := make(map[string]bool, len(prefs.AvoidGenres))
	for _, genre := range prefs.AvoidGenres {
		avoided[strings.ToLower(strings.TrimSpace(genre))] = true
	}

	for _, genre := range prefs.PreferredGenres {
		genre = strings.TrimSpace(genre)
		if genre == "" || avoided[strings.ToLower(genre)] {
			continue
		}
		return genre
	}
	return ""
}
