package notify

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
	"github.com/pilgrimlyieu/Focust-sub001/internal/core/scheduler"
)

// Notifier turns scheduler events into desktop notifications. Delivery is
// fire-and-forget; a missed notification is a presentation concern only.
type Notifier struct {
	app     fyne.App
	enabled bool
}

// New creates a notifier sending through the given fyne application.
func New(app fyne.App, enabled bool) *Notifier {
	return &Notifier{app: app, enabled: enabled}
}

// SetEnabled toggles notification delivery.
func (notifier *Notifier) SetEnabled(enabled bool) {
	notifier.enabled = enabled
}

// Run processes events until the channel is closed.
func (notifier *Notifier) Run(events <-chan scheduler.Event) {
	for event := range events {
		notifier.handle(event)
	}
}

func (notifier *Notifier) handle(event scheduler.Event) {
	if !notifier.enabled {
		return
	}

	var title, content string
	switch event.Type {
	case scheduler.EventBreakDue:
		title, content = breakDueMessage(event)
	case scheduler.EventBreakStarted:
		title, content = breakStartedMessage(event)
	case scheduler.EventBreakEnded:
		title = "Break over"
		content = "Back to work."
	case scheduler.EventSnoozed:
		title = "Break snoozed"
		content = fmt.Sprintf("Your break returns at %s.", event.Until.Format("15:04"))
	default:
		return
	}

	notifier.app.SendNotification(fyne.NewNotification(title, content))
}

func breakDueMessage(event scheduler.Event) (string, string) {
	title := "Time for a break"
	if event.Kind == model.BreakLong {
		title = "Time for a long break"
	}
	content := "Step away from the screen."
	if event.Suggestion != nil {
		content = event.Suggestion.Activity
	}
	return title, content
}

func breakStartedMessage(event scheduler.Event) (string, string) {
	title := "Break started"
	content := fmt.Sprintf("Relax for %s.", formatDuration(event.Duration))
	if event.Suggestion != nil {
		content = fmt.Sprintf("%s (%s)", event.Suggestion.Activity, formatDuration(event.Duration))
	}
	return title, content
}

func formatDuration(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}
	minutes := int(duration.Minutes())
	seconds := int(duration.Seconds()) % 60
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}
