package navigator

import (
	"testing"
	"time"
)

func TestClampTransition(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name       string
		transition time.Duration
		period     time.Duration
		want       time.Duration
	}{
		{"within half period", 500 * ms, 1500 * ms, 500 * ms},
		{"longer than half period", 2000 * ms, 1500 * ms, 750 * ms},
		{"zero disables fade", 0, 1500 * ms, 0},
		{"negative uses default", -1, 1500 * ms, DefaultTransition},
		{"negative with short period", -1, 600 * ms, 300 * ms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampTransition(tt.transition, tt.period); got != tt.want {
				t.Errorf("ClampTransition(%v, %v) = %v, want %v", tt.transition, tt.period, got, tt.want)
			}
		})
	}
}

func TestConfig_Normalize(t *testing.T) {
	c := Config{Period: -time.Second, Transition: time.Hour}.Normalize()
	if c.Period != DefaultPeriod {
		t.Errorf("period %v", c.Period)
	}
	if c.Transition != DefaultPeriod/2 {
		t.Errorf("transition %v", c.Transition)
	}
	if c.PollInterval != DefaultPollInterval || c.PollAttempts != DefaultPollAttempts {
		t.Errorf("poll %v x %d", c.PollInterval, c.PollAttempts)
	}
}

func TestNavigator_SetPeriod_reclamps_transition(t *testing.T) {
	nav := New(nil, &queueHost{}, Options{Config: DefaultConfig(400, 300), Scheduler: &manualScheduler{}})
	nav.SetPeriod(1500 * time.Millisecond)
	nav.SetTransition(2000 * time.Millisecond)
	if got := nav.Config().Transition; got != 750*time.Millisecond {
		t.Errorf("transition %v, want 750ms", got)
	}
	nav.SetPeriod(400 * time.Millisecond)
	if got := nav.Config().Transition; got != 200*time.Millisecond {
		t.Errorf("transition after shorter period %v", got)
	}
	nav.SetPeriod(0)
	if got := nav.Config().Period; got != DefaultPeriod {
		t.Errorf("period %v", got)
	}
}
