package utils

import "time"

// NowUnix returns the current time as Unix seconds. The playback client
// consumes timestamps as fractional seconds, so the wire types use float64.
func NowUnix() float64 {
	return UnixSeconds(time.Now())
}

// UnixSeconds converts a time to fractional Unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// TimeOfDayBucket maps a clock time to a coarse bucket used to color
// suggestion reasons and refinement prompts.
func TimeOfDayBucket(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}
