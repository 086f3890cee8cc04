package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/vibesense/vibesense/internal/config"
	"github.com/vibesense/vibesense/internal/domain"
	apperrors "github.com/vibesense/vibesense/internal/errors"
	"github.com/vibesense/vibesense/internal/state"
)

func testHeartConfig() config.HeartConfig {
	return config.HeartConfig{
		SmoothingAlpha: 0.4,
		MinBPM:         30,
		MaxBPM:         240,
		LightAt:        60,
		ModerateAt:     100,
		VigorousAt:     140,
		PeakAt:         170,
	}
}

func newTestHeartService() *HeartService {
	return NewHeartService(state.NewHeartStates(), testHeartConfig())
}

func TestIngestColdStart(t *testing.T) {
	svc := newTestHeartService()

	heartState, err := svc.Ingest(context.Background(), "abc", 82, "focused")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if heartState.SmoothedBPM != 82 {
		t.Errorf("SmoothedBPM = %v, want exactly 82 on first reading", heartState.SmoothedBPM)
	}
	if heartState.Zone != domain.ZoneLight {
		t.Errorf("Zone = %v, want %v", heartState.Zone, domain.ZoneLight)
	}
	if heartState.LastReading.BPM != 82 {
		t.Errorf("LastReading.BPM = %v, want 82", heartState.LastReading.BPM)
	}
	if heartState.LastReading.ReportedMood != "focused" {
		t.Errorf("LastReading.ReportedMood = %q, want %q", heartState.LastReading.ReportedMood, "focused")
	}
	if heartState.LastUpdated == 0 {
		t.Error("LastUpdated not stamped")
	}
}

func TestIngestDampsStepChange(t *testing.T) {
	svc := newTestHeartService()
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "abc", 60, ""); err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	heartState, err := svc.Ingest(ctx, "abc", 160, "")
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	if heartState.SmoothedBPM <= 60 || heartState.SmoothedBPM >= 160 {
		t.Errorf("SmoothedBPM = %v, want strictly between 60 and 160", heartState.SmoothedBPM)
	}

	// alpha 0.4: 60 + 0.4*(160-60) = 100
	if math.Abs(heartState.SmoothedBPM-100) > 1e-9 {
		t.Errorf("SmoothedBPM = %v, want 100", heartState.SmoothedBPM)
	}
}

func TestIngestStaysWithinObservedBounds(t *testing.T) {
	svc := newTestHeartService()
	ctx := context.Background()

	readings := []float64{72, 140, 55, 190, 38, 220, 61, 95, 240, 30}
	minSeen, maxSeen := readings[0], readings[0]

	for i, bpm := range readings {
		if bpm < minSeen {
			minSeen = bpm
		}
		if bpm > maxSeen {
			maxSeen = bpm
		}

		heartState, err := svc.Ingest(ctx, "abc", bpm, "")
		if err != nil {
			t.Fatalf("Ingest(%v) error = %v", bpm, err)
		}
		if heartState.SmoothedBPM < minSeen || heartState.SmoothedBPM > maxSeen {
			t.Errorf("reading %d: SmoothedBPM = %v outside observed bounds [%v, %v]",
				i, heartState.SmoothedBPM, minSeen, maxSeen)
		}
	}
}

func TestIngestConvergesWithinSixReadings(t *testing.T) {
	svc := newTestHeartService()
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "abc", 60, ""); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	var heartState domain.HeartState
	var err error
	for i := 0; i < 6; i++ {
		heartState, err = svc.Ingest(ctx, "abc", 160, "")
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	if math.Abs(heartState.SmoothedBPM-160)/160 > 0.05 {
		t.Errorf("after 6 readings SmoothedBPM = %v, want within 5%% of 160", heartState.SmoothedBPM)
	}
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		bpm    float64
	}{
		{name: "missing user_id", userID: "", bpm: 82},
		{name: "zero bpm", userID: "abc", bpm: 0},
		{name: "negative bpm", userID: "abc", bpm: -10},
		{name: "below band", userID: "abc", bpm: 29.9},
		{name: "above band", userID: "abc", bpm: 240.1},
		{name: "NaN", userID: "abc", bpm: math.NaN()},
		{name: "positive infinity", userID: "abc", bpm: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestHeartService()
			_, err := svc.Ingest(context.Background(), tt.userID, tt.bpm, "")
			if err == nil {
				t.Fatal("Ingest() error = nil, want validation error")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("error type = %v, want validation", err)
			}
		})
	}
}

func TestIngestValidationDoesNotMutateState(t *testing.T) {
	svc := newTestHeartService()
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "abc", 80, ""); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := svc.Ingest(ctx, "abc", 500, ""); err == nil {
		t.Fatal("Ingest(500) error = nil, want validation error")
	}

	heartState, err := svc.Latest(ctx, "abc")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if heartState.SmoothedBPM != 80 {
		t.Errorf("SmoothedBPM = %v, want 80 (rejected reading must not mutate state)", heartState.SmoothedBPM)
	}

	// A rejected reading must also not create state for a fresh user.
	if _, err := svc.Ingest(ctx, "fresh", 500, ""); err == nil {
		t.Fatal("Ingest(500) error = nil, want validation error")
	}
	if _, err := svc.Latest(ctx, "fresh"); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("Latest() error = %v, want not_found", err)
	}
}

func TestLatestNotFound(t *testing.T) {
	svc := newTestHeartService()

	_, err := svc.Latest(context.Background(), "nobody")
	if err == nil {
		t.Fatal("Latest() error = nil, want not_found error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("error type = %v, want not_found", err)
	}
}

func TestZoneFor(t *testing.T) {
	svc := newTestHeartService()

	tests := []struct {
		bpm  float64
		want domain.Zone
	}{
		{30, domain.ZoneResting},
		{59.9, domain.ZoneResting},
		{60, domain.ZoneLight}, // boundary belongs to the higher zone
		{82, domain.ZoneLight},
		{99.9, domain.ZoneLight},
		{100, domain.ZoneModerate},
		{139.9, domain.ZoneModerate},
		{140, domain.ZoneVigorous},
		{169.9, domain.ZoneVigorous},
		{170, domain.ZonePeak},
		{240, domain.ZonePeak},
	}

	for _, tt := range tests {
		if got := svc.ZoneFor(tt.bpm); got != tt.want {
			t.Errorf("ZoneFor(%v) = %v, want %v", tt.bpm, got, tt.want)
		}
	}
}

func TestIngestConcurrentSameUser(t *testing.T) {
	svc := newTestHeartService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bpm := 60 + float64(i%100)
			if _, err := svc.Ingest(ctx, "abc", bpm, ""); err != nil {
				t.Errorf("Ingest(%v) error = %v", bpm, err)
			}
		}(i)
	}
	wg.Wait()

	heartState, err := svc.Latest(ctx, "abc")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if heartState.SmoothedBPM < 60 || heartState.SmoothedBPM > 160 {
		t.Errorf("SmoothedBPM = %v outside the range of submitted readings", heartState.SmoothedBPM)
	}
	if heartState.Zone != svc.ZoneFor(heartState.SmoothedBPM) {
		t.Errorf("Zone = %v does not match SmoothedBPM %v", heartState.Zone, heartState.SmoothedBPM)
	}
}
