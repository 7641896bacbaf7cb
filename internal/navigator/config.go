package navigator

import "time"

const (
	// DefaultPeriod is how long each slide is shown in automatic mode.
	DefaultPeriod = 1500 * time.Millisecond
	// DefaultTransition is the cross-fade duration.
	DefaultTransition = 500 * time.Millisecond
	// DefaultPollInterval is the first-item poll interval.
	DefaultPollInterval = 150 * time.Millisecond
	// DefaultPollAttempts bounds the first-item poll.
	DefaultPollAttempts = 400
)

// Config holds the slideshow timing and viewport.
type Config struct {
	Period       time.Duration
	Transition   time.Duration
	PollInterval time.Duration
	PollAttempts int
	Width        int
	Height       int
}

// DefaultConfig returns the default timing for a width by height viewport.
func DefaultConfig(width, height int) Config {
	return Config{
		Period:       DefaultPeriod,
		Transition:   DefaultTransition,
		PollInterval: DefaultPollInterval,
		PollAttempts: DefaultPollAttempts,
		Width:        width,
		Height:       height,
	}
}

// Normalize clamps invalid values instead of rejecting them: a non-positive
// period becomes DefaultPeriod, a negative transition becomes the default
// (capped at half a period) and any transition longer than half a period is
// cut to half a period.
func (c Config) Normalize() Config {
	c.Period = ClampPeriod(c.Period)
	c.Transition = ClampTransition(c.Transition, c.Period)
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	return c
}

// ClampPeriod returns DefaultPeriod for non-positive values.
func ClampPeriod(p time.Duration) time.Duration {
	if p <= 0 {
		return DefaultPeriod
	}
	return p
}

// ClampTransition fits t into [0, period/2].
func ClampTransition(t, period time.Duration) time.Duration {
	half := period / 2
	switch {
	case t < 0:
		return min(DefaultTransition, half)
	case t > half:
		return half
	default:
		return t
	}
}
