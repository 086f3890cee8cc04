package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vibesense/vibesense/internal/domain"
	apperrors "github.com/vibesense/vibesense/internal/errors"
	"github.com/vibesense/vibesense/internal/logger"
	"github.com/vibesense/vibesense/internal/services"
)

// Handlers contains the HTTP handlers for the ingest API.
type Handlers struct {
	heart     *services.HeartService
	mood      *services.MoodService
	assembler *services.SuggestionService
	prefs     domain.PreferencesStore
	contexts  domain.ContextStore
	cache     domain.SuggestionCache
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	heart *services.HeartService,
	mood *services.MoodService,
	assembler *services.SuggestionService,
	prefs domain.PreferencesStore,
	contexts domain.ContextStore,
	cache domain.SuggestionCache,
) *Handlers {
	return &Handlers{
		heart:     heart,
		mood:      mood,
		assembler: assembler,
		prefs:     prefs,
		contexts:  contexts,
		cache:     cache,
	}
}

type ingestRequest struct {
	UserID string  `json:"user_id"`
	BPM    float64 `json:"bpm"`
	Mood   string  `json:"mood"`
}

type ingestResponse struct {
	Status     string            `json:"status"`
	Heart      domain.HeartState `json:"heart"`
	Suggestion domain.Suggestion `json:"suggestion"`
}

type preferencesRequest struct {
	UserID          string   `json:"user_id"`
	PreferredGenres []string `json:"preferred_genres"`
	AvoidGenres     []string `json:"avoid_genres"`
	FavoriteArtists []string `json:"favorite_artists"`
	Dislikes        []string `json:"dislikes"`
	Notes           string   `json:"notes"`
	EnergyProfile   string   `json:"energy_profile"`
}

// Ingest handles POST /ingest: validate and smooth the reading, classify
// the mood, assemble the suggestion and remember it as the user's latest.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var body ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	ctx := r.Context()
	heartState, err := h.heart.Ingest(ctx, body.UserID, body.BPM, body.Mood)
	if err != nil {
		writeError(w, err)
		return
	}

	suggestion := h.deriveSuggestion(r, heartState)

	writeJSON(w, http.StatusOK, ingestResponse{
		Status:     "ok",
		Heart:      heartState,
		Suggestion: suggestion,
	})
}

// LatestSuggestion handles GET /suggestion: re-derive a suggestion from the
// stored heart state without a new reading. With ?cached=true the stored
// latest suggestion is returned instead, when one exists.
func (h *Handlers) LatestSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromQuery(r)

	if r.URL.Query().Get("cached") == "true" {
		cached, err := h.cache.Latest(ctx, userID)
		if err != nil {
			logger.Warn("Failed to read suggestion cache", "user_id", userID, "error", err)
		}
		if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	heartState, err := h.heart.Latest(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	suggestion := h.deriveSuggestion(r, heartState)
	writeJSON(w, http.StatusOK, suggestion)
}

// deriveSuggestion runs classifier and assembler for a heart state and
// caches the result. Preference lookup problems degrade to classification
// without preferences rather than failing the request.
func (h *Handlers) deriveSuggestion(r *http.Request, heartState domain.HeartState) domain.Suggestion {
	ctx := r.Context()

	prefs, err := h.prefs.Get(ctx, heartState.UserID)
	if err != nil {
		logger.Warn("Failed to load preferences", "user_id", heartState.UserID, "error", err)
		prefs = nil
	}

	draft := h.mood.Classify(heartState, prefs)
	suggestion := h.assembler.Assemble(ctx, draft, heartState, prefs)

	if err := h.cache.SetLatest(ctx, suggestion); err != nil {
		logger.Warn("Failed to cache suggestion", "user_id", heartState.UserID, "error", err)
	}
	return suggestion
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	_, err := h.heart.Latest(r.Context(), userIDFromQuery(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"has_state": err == nil,
	})
}

// UpdatePreferences handles POST /preferences.
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var body preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.NewValidationError("invalid JSON body"))
		return
	}

	userID := body.UserID
	if userID == "" {
		userID = domain.DefaultUser
	}

	saved, err := h.prefs.Set(r.Context(), userID, domain.Preferences{
		PreferredGenres: body.PreferredGenres,
		AvoidGenres:     body.AvoidGenres,
		FavoriteArtists: body.FavoriteArtists,
		Dislikes:        body.Dislikes,
		Notes:           body.Notes,
		EnergyProfile:   body.EnergyProfile,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"user_id":     userID,
		"preferences": saved,
	})
}

// ReadPreferences handles GET /preferences.
func (h *Handlers) ReadPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromQuery(r)

	prefs, err := h.prefs.Get(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if prefs == nil {
		prefs = &domain.Preferences{
			PreferredGenres: []string{},
			AvoidGenres:     []string{},
			FavoriteArtists: []string{},
			Dislikes:        []string{},
		}
	}

	agentCtx, err := h.contexts.Get(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"user_id":     userID,
		"context":     agentCtx,
		"preferences": prefs,
	})
}

func userIDFromQuery(r *http.Request) string {
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		return userID
	}
	return domain.DefaultUser
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case apperrors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrorTypeTimeout:
			status = http.StatusGatewayTimeout
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	}

	writeJSON(w, status, map[string]interface{}{
		"status": "error",
		"error":  message,
	})
}
