package scheduler

import (
	"time"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
	"github.com/pilgrimlyieu/Focust-sub001/internal/core/suggest"
)

// State represents the current Scheduler mode.
type State string

const (
	StateIdle        State = "idle"
	StateWorking     State = "working"
	StateBreakDue    State = "break_due"
	StateBreakActive State = "break_active"
	StateSnoozed     State = "snoozed"
	StatePaused      State = "paused"
)

// EventType defines the type of Scheduler event.
type EventType string

const (
	// EventWorkTick is the per-tick progress update. It carries remaining
	// time to the next break while working, or remaining break time during
	// an active break. Ticks that apply a transition emit the transition
	// event instead.
	EventWorkTick EventType = "work_tick"

	EventBreakDue     EventType = "break_due"
	EventBreakStarted EventType = "break_started"
	EventBreakEnded   EventType = "break_ended"
	EventSnoozed      EventType = "snoozed"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventStarted      EventType = "started"
	EventStopped      EventType = "stopped"

	// EventIdleReset reports that a long absence discarded the accrued work.
	EventIdleReset EventType = "idle_reset"

	// EventWarning surfaces non-fatal collaborator failures, such as an idle
	// query error or a suggestion provider timeout.
	EventWarning EventType = "warning"
)

// Event represents a Scheduler update for observers. Delivery is
// fire-and-forget; slow observers miss events rather than stall the engine.
type Event struct {
	Type       EventType
	State      State
	Kind       model.BreakKind
	Remaining  time.Duration
	Duration   time.Duration
	Progress   float64
	Until      time.Time
	Suggestion *suggest.Suggestion
	Message    string
	At         time.Time
}
