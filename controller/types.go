package controller

import (
	"strings"
	"time"
)

// Kind names the active provider.
type Kind string

const (
	KindLocal Kind = "local"
	KindAI    Kind = "ai"
)

// TextSource is the user's choice of where texts come from.
type TextSource string

const (
	SourceAuto  TextSource = "auto"
	SourceLocal TextSource = "local"
	SourceAI    TextSource = "ai"
)

// ParseTextSource accepts auto, local or ai in any case.
func ParseTextSource(s string) (TextSource, bool) {
	switch src := TextSource(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceAuto, SourceLocal, SourceAI:
		return src, true
	}
	return "", false
}

func (s TextSource) wantsAI() bool {
	return s == SourceAuto || s == SourceAI
}

// State is the spawn run state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateExiting:
		return "exiting"
	default:
		return "stopped"
	}
}

// EventType identifies what an Event reports.
type EventType int

const (
	EventRunningChanged EventType = iota
	EventProviderChanged
	EventAIPreparingChanged
)

// Event is sent on the channel returned by Controller.Events. Only the
// field matching Type is meaningful.
type Event struct {
	Type      EventType
	Running   bool
	Provider  Kind
	Preparing bool
}

// Status is a point-in-time snapshot for status displays.
type Status struct {
	State       State
	Provider    Kind
	AIEnabled   bool
	Source      TextSource
	Preparing   bool
	LocalReady  bool
	RemoteReady bool

	LastAttempt      time.Time
	LastFailure      time.Time
	BackoffRemaining time.Duration
}
