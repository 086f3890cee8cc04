package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vibesense/vibesense/internal/domain"
	"github.com/vibesense/vibesense/internal/utils"
)

type failingRefiner struct{}

func (failingRefiner) Refine(context.Context, domain.RefinementInput) (*domain.RefinedFields, error) {
	return nil, errors.New("provider exploded")
}

// blockingRefiner waits for the context deadline, like a hung provider.
type blockingRefiner struct{}

func (blockingRefiner) Refine(ctx context.Context, _ domain.RefinementInput) (*domain.RefinedFields, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type stubRefiner struct {
	fields *domain.RefinedFields
	input  domain.RefinementInput
}

func (r *stubRefiner) Refine(_ context.Context, input domain.RefinementInput) (*domain.RefinedFields, error) {
	r.input = input
	return r.fields, nil
}

type memoryContextStore struct {
	mu       sync.Mutex
	contexts map[string]domain.AgentContext
	getErr   error
	setErr   error
}

func newMemoryContextStore() *memoryContextStore {
	return &memoryContextStore{contexts: make(map[string]domain.AgentContext)}
}

func (s *memoryContextStore) Get(_ context.Context, userID string) (domain.AgentContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.AgentContext{}, s.getErr
	}
	return s.contexts[userID], nil
}

func (s *memoryContextStore) Set(_ context.Context, userID string, agentCtx domain.AgentContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.contexts[userID] = agentCtx
	return nil
}

func testDraft() domain.DraftSuggestion {
	return domain.DraftSuggestion{
		Mood:            "focused",
		Intensity:       0.365,
		SuggestedAction: "play_playlist",
		SearchQuery:     "lofi steady focus beats",
		Reason:          "82 bpm in light zone, focused vibe",
	}
}

func testHeart() domain.HeartState {
	return domain.HeartState{
		UserID:      "abc",
		SmoothedBPM: 82,
		Zone:        domain.ZoneLight,
		LastReading: domain.HeartReading{BPM: 82, ReportedMood: "focused", Timestamp: 1},
		LastUpdated: 1,
	}
}

func TestAssembleWithoutRefiner(t *testing.T) {
	svc := NewSuggestionService(nil, newMemoryContextStore(), time.Second)

	suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)

	draft := testDraft()
	if suggestion.Mood != draft.Mood ||
		suggestion.Intensity != draft.Intensity ||
		suggestion.SuggestedAction != draft.SuggestedAction ||
		suggestion.SearchQuery != draft.SearchQuery ||
		suggestion.Reason != draft.Reason {
		t.Errorf("suggestion = %+v, want draft fields preserved", suggestion)
	}
	if suggestion.UserID != "abc" {
		t.Errorf("UserID = %q, want %q", suggestion.UserID, "abc")
	}
	if suggestion.GeneratedAt == 0 {
		t.Error("GeneratedAt not stamped")
	}
	if suggestion.Heart.SmoothedBPM != 82 {
		t.Errorf("Heart.SmoothedBPM = %v, want 82", suggestion.Heart.SmoothedBPM)
	}
}

func TestAssembleRefinerFailureMatchesNoRefinementPath(t *testing.T) {
	refiners := map[string]domain.Refiner{
		"nil refiner":  nil,
		"null refiner": NullRefiner{},
		"failing":      failingRefiner{},
		"hung":         blockingRefiner{},
	}

	var reference *domain.Suggestion
	for name, refiner := range refiners {
		t.Run(name, func(t *testing.T) {
			svc := NewSuggestionService(refiner, newMemoryContextStore(), 20*time.Millisecond)
			suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)

			if reference == nil {
				reference = &suggestion
				return
			}
			if suggestion.Mood != reference.Mood ||
				suggestion.Intensity != reference.Intensity ||
				suggestion.SuggestedAction != reference.SuggestedAction ||
				suggestion.SearchQuery != reference.SearchQuery ||
				suggestion.Reason != reference.Reason {
				t.Errorf("%s path diverged from fallback: %+v vs %+v", name, suggestion, *reference)
			}
		})
	}
}

func TestAssembleTimeoutIsBounded(t *testing.T) {
	svc := NewSuggestionService(blockingRefiner{}, newMemoryContextStore(), 30*time.Millisecond)

	start := time.Now()
	suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Assemble took %v, want bounded by the refine timeout", elapsed)
	}
	if suggestion.SearchQuery != testDraft().SearchQuery {
		t.Errorf("SearchQuery = %q, want deterministic fallback", suggestion.SearchQuery)
	}
}

func TestAssembleMergesRefinedFields(t *testing.T) {
	intensity := 0.5
	refiner := &stubRefiner{fields: &domain.RefinedFields{
		Mood:        "mellow",
		Intensity:   &intensity,
		SearchQuery: "jazz evening session",
		Reason:      "steady light zone, jazz leaning",
	}}
	svc := NewSuggestionService(refiner, newMemoryContextStore(), time.Second)

	suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)

	if suggestion.Mood != "mellow" {
		t.Errorf("Mood = %q, want refined %q", suggestion.Mood, "mellow")
	}
	if suggestion.Intensity != 0.5 {
		t.Errorf("Intensity = %v, want refined 0.5", suggestion.Intensity)
	}
	if suggestion.SearchQuery != "jazz evening session" {
		t.Errorf("SearchQuery = %q, want refined query", suggestion.SearchQuery)
	}
	if suggestion.Reason != "steady light zone, jazz leaning" {
		t.Errorf("Reason = %q, want refined reason", suggestion.Reason)
	}
	// SuggestedAction was not refined and must keep the draft value.
	if suggestion.SuggestedAction != "play_playlist" {
		t.Errorf("SuggestedAction = %q, want draft value", suggestion.SuggestedAction)
	}
}

func TestAssembleIgnoresOutOfRangeRefinedIntensity(t *testing.T) {
	tests := []float64{-0.1, 1.5}
	for _, bad := range tests {
		bad := bad
		refiner := &stubRefiner{fields: &domain.RefinedFields{Intensity: &bad}}
		svc := NewSuggestionService(refiner, newMemoryContextStore(), time.Second)

		suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)
		if suggestion.Intensity != testDraft().Intensity {
			t.Errorf("Intensity = %v with refined %v, want draft value kept", suggestion.Intensity, bad)
		}
	}
}

func TestAssembleClampsDraftIntensity(t *testing.T) {
	draft := testDraft()
	draft.Intensity = 1.2
	svc := NewSuggestionService(nil, newMemoryContextStore(), time.Second)

	suggestion := svc.Assemble(context.Background(), draft, testHeart(), nil)
	if suggestion.Intensity != 1.0 {
		t.Errorf("Intensity = %v, want clamped to 1.0", suggestion.Intensity)
	}
}

func TestAssemblePassesContextAndPreferencesToRefiner(t *testing.T) {
	contexts := newMemoryContextStore()
	contexts.contexts["abc"] = domain.AgentContext{LastQuery: "previous query"}

	refiner := &stubRefiner{}
	svc := NewSuggestionService(refiner, contexts, time.Second)
	prefs := &domain.Preferences{PreferredGenres: []string{"jazz"}}

	svc.Assemble(context.Background(), testDraft(), testHeart(), prefs)

	if refiner.input.Preferences == nil || len(refiner.input.Preferences.PreferredGenres) == 0 {
		t.Error("refiner did not receive preferences")
	}
	if refiner.input.Context == nil || refiner.input.Context.LastQuery != "previous query" {
		t.Errorf("refiner context = %+v, want stored agent context", refiner.input.Context)
	}
	if refiner.input.TimeOfDay == "" {
		t.Error("refiner did not receive a time-of-day bucket")
	}
}

func TestAssembleUpdatesAgentContext(t *testing.T) {
	contexts := newMemoryContextStore()
	svc := NewSuggestionService(nil, contexts, time.Second)

	suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)

	stored := contexts.contexts["abc"]
	if stored.LastQuery != suggestion.SearchQuery {
		t.Errorf("stored LastQuery = %q, want %q", stored.LastQuery, suggestion.SearchQuery)
	}
	if stored.LastAction != suggestion.SuggestedAction {
		t.Errorf("stored LastAction = %q, want %q", stored.LastAction, suggestion.SuggestedAction)
	}
	if stored.LastActionAt != suggestion.GeneratedAt {
		t.Errorf("stored LastActionAt = %v, want %v", stored.LastActionAt, suggestion.GeneratedAt)
	}
}

func TestAssembleSurvivesContextStoreFailure(t *testing.T) {
	contexts := newMemoryContextStore()
	contexts.getErr = errors.New("db down")
	contexts.setErr = errors.New("db down")
	svc := NewSuggestionService(NullRefiner{}, contexts, time.Second)

	suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)
	if suggestion.Mood == "" || suggestion.SearchQuery == "" {
		t.Errorf("suggestion = %+v, want complete suggestion despite store failure", suggestion)
	}
}

func TestAssembleSnapshotIsImmutable(t *testing.T) {
	svc := NewSuggestionService(nil, newMemoryContextStore(), time.Second)
	heart := testHeart()

	suggestion := svc.Assemble(context.Background(), testDraft(), heart, nil)

	heart.SmoothedBPM = 180
	heart.Zone = domain.ZonePeak

	if suggestion.Heart.SmoothedBPM != 82 || suggestion.Heart.Zone != domain.ZoneLight {
		t.Errorf("suggestion heart snapshot mutated: %+v", suggestion.Heart)
	}
}

func TestAssembleGeneratedAtIsRecent(t *testing.T) {
	svc := NewSuggestionService(nil, newMemoryContextStore(), time.Second)

	before := utils.NowUnix()
	suggestion := svc.Assemble(context.Background(), testDraft(), testHeart(), nil)
	after := utils.NowUnix()

	if suggestion.GeneratedAt < before || suggestion.GeneratedAt > after {
		t.Errorf("GeneratedAt = %v outside [%v, %v]", suggestion.GeneratedAt, before, after)
	}
}
