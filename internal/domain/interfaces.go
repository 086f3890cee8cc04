package domain

import (
	"context"
)

// PreferencesStore persists user music preferences. Get returns (nil, nil)
// when the user has no stored preferences; the classifier treats that the
// same as an empty record.
type PreferencesStore interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Set(ctx context.Context, userID string, prefs Preferences) (*Preferences, error)
}

// ContextStore persists the per-user agent context between suggestions.
type ContextStore interface {
	Get(ctx context.Context, userID string) (AgentContext, error)
	Set(ctx context.Context, userID string, agentCtx AgentContext) error
}

// Refiner is the optional suggestion-refinement collaborator. A nil result
// with a nil error means the refiner had nothing to change. Any error is
// recovered by the assembler via the deterministic fallback.
type Refiner interface {
	Refine(ctx context.Context, input RefinementInput) (*RefinedFields, error)
}

// SuggestionCache stores the most recent suggestion per user.
type SuggestionCache interface {
	SetLatest(ctx context.Context, suggestion Suggestion) error
	Latest(ctx context.Context, userID string) (*Suggestion, error)
}
