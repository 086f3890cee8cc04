package domain

// DefaultUser is the user id applied when a request does not scope itself.
const DefaultUser = "default"

// Zone is a discretized heart-rate intensity band derived from smoothed BPM.
type Zone string

const (
	ZoneResting  Zone = "resting"
	ZoneLight    Zone = "light"
	ZoneModerate Zone = "moderate"
	ZoneVigorous Zone = "vigorous"
	ZonePeak     Zone = "peak"
)

// HeartReading is a single raw heart-rate sample as received from a device.
type HeartReading struct {
	BPM          float64 `json:"bpm"`
	ReportedMood string  `json:"reported_mood"`
	Timestamp    float64 `json:"timestamp"`
}

// HeartState is the per-user stabilized heart estimate. SmoothedBPM is an
// exponentially weighted moving average of the readings seen so far, so it
// always stays within the observed min/max bounds.
type HeartState struct {
	UserID      string       `json:"user_id"`
	SmoothedBPM float64      `json:"smoothed_bpm"`
	Zone        Zone         `json:"zone"`
	LastReading HeartReading `json:"last_reading"`
	LastUpdated float64      `json:"last_updated"`
}

// DraftSuggestion is the deterministic pre-refinement output of the mood
// classifier. SearchQuery here is the guaranteed fallback query.
type DraftSuggestion struct {
	Mood            string  `json:"mood"`
	Intensity       float64 `json:"intensity"`
	SuggestedAction string  `json:"suggested_action"`
	SearchQuery     string  `json:"search_query"`
	Reason          string  `json:"reason"`
}

// Suggestion is the final record handed to the playback client. The JSON
// field names are a wire contract with the device and must not change.
type Suggestion struct {
	UserID          string     `json:"user_id"`
	Mood            string     `json:"mood"`
	Intensity       float64    `json:"intensity"`
	SuggestedAction string     `json:"suggested_action"`
	SearchQuery     string     `json:"search_query"`
	Reason          string     `json:"reason"`
	GeneratedAt     float64    `json:"generated_at"`
	Heart           HeartState `json:"heart"`
}

// Preferences holds user-level music preferences. The core only reads them.
type Preferences struct {
	PreferredGenres []string `json:"preferred_genres"`
	AvoidGenres     []string `json:"avoid_genres"`
	FavoriteArtists []string `json:"favorite_artists"`
	Dislikes        []string `json:"dislikes"`
	Notes           string   `json:"notes"`
	EnergyProfile   string   `json:"energy_profile"`
}

// AgentContext remembers what was last suggested to a user so successive
// refinements stay coherent instead of flip-flopping.
type AgentContext struct {
	LastAction    string  `json:"last_action"`
	LastQuery     string  `json:"last_query"`
	LastReason    string  `json:"last_reason"`
	LastIntensity float64 `json:"last_intensity"`
	LastActionAt  float64 `json:"last_action_at"`
}

// RefinementInput is everything the refinement collaborator may look at.
type RefinementInput struct {
	Draft       DraftSuggestion `json:"draft"`
	Heart       HeartState      `json:"heart"`
	Preferences *Preferences    `json:"preferences,omitempty"`
	Context     *AgentContext   `json:"context,omitempty"`
	TimeOfDay   string          `json:"time_of_day,omitempty"`
}

// RefinedFields carries the collaborator's adjustments. Empty strings and a
// nil Intensity mean "keep the draft value".
type RefinedFields struct {
	Mood            string   `json:"mood"`
	Intensity       *float64 `json:"intensity"`
	SuggestedAction string   `json:"suggested_action"`
	SearchQuery     string   `json:"search_query"`
	Reason          string   `json:"reason"`
}
