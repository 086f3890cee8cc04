package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/vibesense/vibesense/internal/config"
	"github.com/vibesense/vibesense/internal/domain"
	apperrors "github.com/vibesense/vibesense/internal/errors"
)

const (
	geminiModel        = "gemini-1.5-flash"
	refinerTemperature = 0.3
)

// AIRefiner refines draft suggestions through an LLM provider. The caller
// (SuggestionService) treats every error identically, so this type does not
// retry or fall back itself.
type AIRefiner struct {
	provider     string
	geminiClient *genai.Client
	openaiClient *openai.Client
}

// NewAIRefiner creates a refiner for the configured provider.
func NewAIRefiner(ctx context.Context, cfg config.AIConfig) (*AIRefiner, error) {
	r := &AIRefiner{provider: cfg.Provider}

	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		r.geminiClient = client
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		r.openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unsupported refinement provider %q", cfg.Provider)
	}

	return r, nil
}

// Refine asks the provider for adjusted suggestion fields.
func (r *AIRefiner) Refine(ctx context.Context, input domain.RefinementInput) (*domain.RefinedFields, error) {
	prompt, err := buildRefinementPrompt(input)
	if err != nil {
		return nil, apperrors.NewRefinementError(err, r.provider)
	}

	var text string
	switch r.provider {
	case "gemini":
		text, err = r.refineWithGemini(ctx, prompt)
	case "openai":
		text, err = r.refineWithOpenAI(ctx, prompt)
	default:
		err = fmt.Errorf("unsupported refinement provider %q", r.provider)
	}
	if err != nil {
		return nil, apperrors.NewRefinementError(err, r.provider)
	}

	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, apperrors.NewRefinementError(fmt.Errorf("no valid JSON found in response"), r.provider)
	}

	var refined domain.RefinedFields
	if err := json.Unmarshal([]byte(jsonStr), &refined); err != nil {
		return nil, apperrors.NewRefinementError(fmt.Errorf("failed to parse response: %w", err), r.provider)
	}
	return &refined, nil
}

func (r *AIRefiner) refineWithGemini(ctx context.Context, prompt string) (string, error) {
	model := r.geminiClient.GenerativeModel(geminiModel)
	model.SetTemperature(refinerTemperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part from Gemini")
	}
	return string(text), nil
}

func (r *AIRefiner) refineWithOpenAI(ctx context.Context, prompt string) (string, error) {
	resp, err := r.openaiClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       openai.GPT4oMini,
			Temperature: refinerTemperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildRefinementPrompt(input domain.RefinementInput) (string, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode refinement input: %w", err)
	}

	prompt := fmt.Sprintf(`You are a music programming assistant for a heart-rate driven playback client.
You receive a deterministic draft suggestion together with the smoothed heart state,
the user's stored music preferences and the previous suggestion context.

TASK:
1. Keep the draft's mood and intensity unless the preferences clearly call for a change
2. Rewrite the search query so it respects preferred genres and favorite artists and never
   includes avoided genres or dislikes
3. Rewrite the reason as one short sentence tied to the heart-rate context
4. Avoid repeating the previous query from the context verbatim

CRITICAL JSON FORMAT REQUIREMENTS:
- Your response MUST be a valid JSON object
- Do not include any markdown formatting or explanatory text before or after the JSON
- intensity must stay between 0.0 and 1.0
- The JSON must have these exact fields:
  {
    "mood": "...",
    "intensity": 0.35,
    "suggested_action": "play_playlist|play_track|keep_current",
    "search_query": "...",
    "reason": "..."
  }

[INPUT]
%s`, string(inputJSON))

	return prompt, nil
}

// extractJSON attempts to extract a valid JSON object from the given string.
// It handles cases where the JSON is wrapped in code blocks or other text.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// NullRefiner never changes a draft. It stands in for the collaborator in
// tests and when refinement is disabled by configuration.
type NullRefiner struct{}

// Refine implements domain.Refiner with no adjustments.
func (NullRefiner) Refine(context.Context, domain.RefinementInput) (*domain.RefinedFields, error) {
	return nil, nil
}
