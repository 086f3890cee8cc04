package services

import (
	"context"
	"time"

	"github.com/vibesense/vibesense/internal/domain"
	"github.com/vibesense/vibesense/internal/logger"
	"github.com/vibesense/vibesense/internal/utils"
)

// SuggestionService assembles the final suggestion from a draft, optionally
// delegating refinement to an external collaborator. Refinement is strictly
// best-effort: any error, timeout or malformed response falls back to the
// deterministic draft, so Assemble never fails.
type SuggestionService struct {
	refiner  domain.Refiner      // nil disables refinement
	contexts domain.ContextStore // nil disables context persistence
	timeout  time.Duration
}

// NewSuggestionService creates an assembler. A nil refiner means the draft
// is always the final answer.
func NewSuggestionService(refiner domain.Refiner, contexts domain.ContextStore, timeout time.Duration) *SuggestionService {
	return &SuggestionService{
		refiner:  refiner,
		contexts: contexts,
		timeout:  timeout,
	}
}

// Assemble builds the suggestion for a heart state. The heart snapshot is
// copied by value, so later updates to the user's state never alter a
// suggestion already returned.
func (s *SuggestionService) Assemble(ctx context.Context, draft domain.DraftSuggestion, heart domain.HeartState, prefs *domain.Preferences) domain.Suggestion {
	suggestion := domain.Suggestion{
		UserID:          heart.UserID,
		Mood:            draft.Mood,
		Intensity:       clamp01(draft.Intensity),
		SuggestedAction: draft.SuggestedAction,
		SearchQuery:     draft.SearchQuery,
		Reason:          draft.Reason,
		Heart:           heart,
	}

	if s.refiner != nil {
		if refined := s.refine(ctx, draft, heart, prefs); refined != nil {
			mergeRefinement(&suggestion, refined)
		}
	}

	suggestion.GeneratedAt = utils.NowUnix()
	s.storeContext(ctx, suggestion)
	return suggestion
}

// refine runs the collaborator under a bounded timeout, single attempt.
func (s *SuggestionService) refine(ctx context.Context, draft domain.DraftSuggestion, heart domain.HeartState, prefs *domain.Preferences) *domain.RefinedFields {
	refineCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := domain.RefinementInput{
		Draft:       draft,
		Heart:       heart,
		Preferences: prefs,
		TimeOfDay:   utils.TimeOfDayBucket(time.Now()),
	}
	if s.contexts != nil {
		if agentCtx, err := s.contexts.Get(refineCtx, heart.UserID); err == nil {
			input.Context = &agentCtx
		}
	}

	refined, err := s.refiner.Refine(refineCtx, input)
	if err != nil {
		logger.Warn("Refinement failed, using deterministic draft",
			"user_id", heart.UserID, "error", err)
		return nil
	}
	return refined
}

// mergeRefinement overlays the collaborator's fields onto the deterministic
// suggestion. Empty fields keep the draft value; an out-of-range intensity
// is ignored rather than clamped so a confused collaborator cannot pin the
// signal to an extreme.
func mergeRefinement(suggestion *domain.Suggestion, refined *domain.RefinedFields) {
	if refined.Mood != "" {
		suggestion.Mood = refined.Mood
	}
	if refined.SuggestedAction != "" {
		suggestion.SuggestedAction = refined.SuggestedAction
	}
	if refined.SearchQuery != "" {
		suggestion.SearchQuery = refined.SearchQuery
	}
	if refined.Reason != "" {
		suggestion.Reason = refined.Reason
	}
	if refined.Intensity != nil && *refined.Intensity >= 0 && *refined.Intensity <= 1 {
		suggestion.Intensity = *refined.Intensity
	}
}

// storeContext remembers what was suggested so the next refinement sees it.
// Best-effort: a failing store must not fail the suggestion.
func (s *SuggestionService) storeContext(ctx context.Context, suggestion domain.Suggestion) {
	if s.contexts == nil {
		return
	}
	err := s.contexts.Set(ctx, suggestion.UserID, domain.AgentContext{
		LastAction:    suggestion.SuggestedAction,
		LastQuery:     suggestion.SearchQuery,
		LastReason:    suggestion.Reason,
		LastIntensity: suggestion.Intensity,
		LastActionAt:  suggestion.GeneratedAt,
	})
	if err != nil {
		logger.Warn("Failed to persist agent context",
			"user_id", suggestion.UserID, "error", err)
	}
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
