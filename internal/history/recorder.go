package history

import (
	"log"
	"time"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/scheduler"
)

// Recorder consumes scheduler events and persists one record per break.
// It is a plain event subscriber; losing it never affects scheduling.
type Recorder struct {
	store *Store

	breakStart      time.Time
	breakPlanned    time.Duration
	breakSuggestion string
	inBreak         bool
}

// NewRecorder creates a recorder writing to the given store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Run processes events until the channel is closed.
func (recorder *Recorder) Run(events <-chan scheduler.Event) {
	for event := range events {
		recorder.handle(event)
	}
}

func (recorder *Recorder) handle(event scheduler.Event) {
	switch event.Type {
	case scheduler.EventBreakStarted:
		recorder.inBreak = true
		recorder.breakStart = event.At
		recorder.breakPlanned = event.Duration
		recorder.breakSuggestion = ""
		if event.Suggestion != nil {
			recorder.breakSuggestion = event.Suggestion.Activity
		}
	case scheduler.EventBreakEnded:
		if !recorder.inBreak {
			return
		}
		recorder.inBreak = false

		actual := event.At.Sub(recorder.breakStart)
		if actual < 0 {
			actual = 0
		}
		record := &BreakRecord{
			StartedAt:  recorder.breakStart,
			EndedAt:    event.At,
			Kind:       event.Kind,
			Planned:    int64(recorder.breakPlanned / time.Second),
			Actual:     int64(actual / time.Second),
			Completed:  actual >= recorder.breakPlanned,
			Suggestion: recorder.breakSuggestion,
		}
		if err := recorder.store.Record(record); err != nil {
			log.Printf("history: %v", err)
		}
	case scheduler.EventStopped:
		recorder.inBreak = false
	}
}
