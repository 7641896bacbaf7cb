package navigator

import (
	"encoding/json"
	"time"
)

// State is the observable state of the slideshow.
type State int

const (
	// StateReset means no content is loaded.
	StateReset State = iota
	// StateActive means the slideshow advances automatically.
	StateActive
	// StateTransitioning is a pulse emitted whenever the current slide changes.
	// State() never reports it.
	StateTransitioning
	// StatePaused means automatic advance is stopped.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateActive:
		return "active"
	case StateTransitioning:
		return "transitioning"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Cause explains why the current slide changed.
type Cause int

const (
	CauseTimer Cause = iota + 1
	CauseSwipe
	CauseRestore
	CauseFirstLoad
)

func (c Cause) String() string {
	switch c {
	case CauseTimer:
		return "timer"
	case CauseSwipe:
		return "swipe"
	case CauseRestore:
		return "restore"
	case CauseFirstLoad:
		return "first_load"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the cause by name.
func (c Cause) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// StateEvent is emitted on entry to a state. StateTransitioning re-fires on
// every slide change.
type StateEvent struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// ContentEvent is emitted whenever the slide considered current changes.
// Source is empty when nothing is shown.
type ContentEvent struct {
	Source string    `json:"source"`
	Cause  Cause     `json:"cause"`
	At     time.Time `json:"at"`
}

// Observer receives navigator events on the foreground goroutine.
// Implementations must not block.
type Observer interface {
	StateChanged(StateEvent)
	ContentChanged(ContentEvent)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnState   func(StateEvent)
	OnContent func(ContentEvent)
}

// StateChanged implements Observer.
func (o ObserverFuncs) StateChanged(e StateEvent) {
	if o.OnState != nil {
		o.OnState(e)
	}
}

// ContentChanged implements Observer.
func (o ObserverFuncs) ContentChanged(e ContentEvent) {
	if o.OnContent != nil {
		o.OnContent(e)
	}
}

// TapResult tells the caller what lifting the finger did.
type TapResult int

const (
	// TapNone means the gesture was a swipe.
	TapNone TapResult = iota
	// TapPaused means the touch paused automatic play.
	TapPaused
	// TapResumed means a click resumed automatic play after a gesture pause.
	TapResumed
	// TapHost means a click the navigator ignored; hosts may toggle chrome.
	TapHost
)

func (t TapResult) String() string {
	switch t {
	case TapNone:
		return "none"
	case TapPaused:
		return "paused"
	case TapResumed:
		return "resumed"
	case TapHost:
		return "host"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the result by name.
func (t TapResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Status is a snapshot of the navigator for hosts.
type Status struct {
	State          State         `json:"state"`
	Started        bool          `json:"started"`
	Paused         bool          `json:"paused"`
	PausedManually bool          `json:"paused_manually"`
	Dragging       bool          `json:"dragging"`
	Moving         bool          `json:"moving"`
	Transitioning  bool          `json:"transitioning"`
	Offset         float64       `json:"offset"`
	Front          string        `json:"front,omitempty"`
	Back           string        `json:"back,omitempty"`
	Preceding      string        `json:"preceding,omitempty"`
	Period         time.Duration `json:"period_ns"`
	Transition     time.Duration `json:"transition_ns"`
}
