package services

import (
	"context"
	"math"

	"github.com/vibesense/vibesense/internal/config"
	"github.com/vibesense/vibesense/internal/domain"
	apperrors "github.com/vibesense/vibesense/internal/errors"
	"github.com/vibesense/vibesense/internal/state"
	"github.com/vibesense/vibesense/internal/utils"
)

// HeartService smooths raw heart-rate readings into a stable per-user
// estimate and classifies it into a zone.
//
// The smoother is an EWMA: next = prev + alpha*(reading - prev). Being a
// convex combination, the estimate always stays inside the min/max of the
// readings seen so far, and a step change converges to within 5% of the
// new level in ceil(ln 0.05 / ln(1-alpha)) readings (6 for alpha 0.4).
type HeartService struct {
	states *state.HeartStates
	cfg    config.HeartConfig
}

// NewHeartService creates a heart service over an injected state store.
func NewHeartService(states *state.HeartStates, cfg config.HeartConfig) *HeartService {
	return &HeartService{
		states: states,
		cfg:    cfg,
	}
}

// Ingest validates a raw reading and folds it into the user's state. The
// read-modify-write of smoothed bpm and zone happens atomically under the
// user's lock. Validation failures leave the state untouched.
func (s *HeartService) Ingest(ctx context.Context, userID string, bpm float64, reportedMood string) (domain.HeartState, error) {
	if userID == "" {
		return domain.HeartState{}, apperrors.NewValidationError("user_id is required")
	}
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return domain.HeartState{}, apperrors.NewValidationError("bpm must be a finite number").
			WithContext("user_id", userID)
	}
	if bpm < s.cfg.MinBPM || bpm > s.cfg.MaxBPM {
		return domain.HeartState{}, apperrors.NewValidationError("bpm outside plausible physiological band").
			WithContext("user_id", userID).
			WithContext("bpm", bpm).
			WithContext("min_bpm", s.cfg.MinBPM).
			WithContext("max_bpm", s.cfg.MaxBPM)
	}

	now := utils.NowUnix()
	reading := domain.HeartReading{
		BPM:          bpm,
		ReportedMood: reportedMood,
		Timestamp:    now,
	}

	updated := s.states.Update(userID, func(prev *domain.HeartState) domain.HeartState {
		smoothed := bpm
		if prev != nil {
			smoothed = prev.SmoothedBPM + s.cfg.SmoothingAlpha*(bpm-prev.SmoothedBPM)
		}
		return domain.HeartState{
			UserID:      userID,
			SmoothedBPM: smoothed,
			Zone:        s.ZoneFor(smoothed),
			LastReading: reading,
			LastUpdated: now,
		}
	})
	return updated, nil
}

// Latest returns the current state for a user, signaling absence distinctly
// from a zero-value state.
func (s *HeartService) Latest(ctx context.Context, userID string) (domain.HeartState, error) {
	heartState, ok := s.states.Latest(userID)
	if !ok {
		return domain.HeartState{}, apperrors.NewNotFoundError("no heart data available for that user").
			WithContext("user_id", userID)
	}
	return heartState, nil
}

// ZoneFor classifies a smoothed bpm. Boundary values belong to the higher
// zone: 60 is light, 170 is peak.
func (s *HeartService) ZoneFor(bpm float64) domain.Zone {
	switch {
	case bpm < s.cfg.LightAt:
		return domain.ZoneResting
	case bpm < s.cfg.ModerateAt:
		return domain.ZoneLight
	case bpm < s.cfg.VigorousAt:
		return domain.ZoneModerate
	case bpm < s.cfg.PeakAt:
		return domain.ZoneVigorous
	default:
		return domain.ZonePeak
	}
}
