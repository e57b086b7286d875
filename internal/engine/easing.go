package engine

import "math"

// EasingType represents the shaping function applied to a fade's progress.
type EasingType string

const (
	// EasingLinear provides constant rate of change.
	EasingLinear EasingType = "LINEAR"
	// EasingInOutSine provides gentle sine wave easing.
	EasingInOutSine EasingType = "EASE_IN_OUT_SINE"
)

// ApplyEasing applies an easing function to a progress value (0-1).
func ApplyEasing(progress float64, easingType EasingType) float64 {
	switch easingType {
	case EasingInOutSine:
		return -(math.Cos(math.Pi*progress) - 1) / 2

	default:
		return progress
	}
}

// Interpolate calculates an interpolated value between start and end.
func Interpolate(start, end, progress float64, easingType EasingType) float64 {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	easedProgress := ApplyEasing(progress, easingType)
	return start + (end-start)*easedProgress
}
