package recognition

import "time"

// WaitBounds derive the maximum wait for a job from the media duration.
type WaitBounds struct {
	Default time.Duration
	Min     time.Duration
	Max     time.Duration
}

// MaxWaitFor allows three times the media duration plus a minute, clamped to
// [Min, Max]. An unknown duration uses Default.
func MaxWaitFor(media time.Duration, b WaitBounds) time.Duration {
	if media <= 0 {
		return b.Default
	}
	wait := media*3 + time.Minute
	if b.Min > 0 && wait < b.Min {
		wait = b.Min
	}
	if b.Max > 0 && wait > b.Max {
		wait = b.Max
	}
	return wait
}
