package tray

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnTogglePause func()
	OnPauseFor    func(time.Duration)
	OnStartBreak  func()
	OnSnooze      func(time.Duration)
	OnSkipBreak   func()
	OnBreakNow    func()
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app         desktop.App
	statusItem  *fyne.MenuItem
	pauseItem   *fyne.MenuItem
	pauseFor    *fyne.MenuItem
	startItem   *fyne.MenuItem
	snoozeItem  *fyne.MenuItem
	skipItem    *fyne.MenuItem
	breakNow    *fyne.MenuItem
	callbacks   Callbacks
	paused      bool
	statusLabel string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.pauseFor = fyne.NewMenuItem("Pause breaks for...", nil)
	manager.pauseFor.ChildMenu = fyne.NewMenu("",
		pauseForItem(manager, 15*time.Minute, "15 minutes"),
		pauseForItem(manager, 30*time.Minute, "30 minutes"),
		pauseForItem(manager, time.Hour, "1 hour"),
	)

	manager.startItem = fyne.NewMenuItem("Start break", func() {
		if manager.callbacks.OnStartBreak != nil {
			manager.callbacks.OnStartBreak()
		}
	})
	manager.startItem.Disabled = true

	manager.snoozeItem = fyne.NewMenuItem("Snooze break", func() {
		if manager.callbacks.OnSnooze != nil {
			manager.callbacks.OnSnooze(0)
		}
	})
	manager.snoozeItem.Disabled = true

	manager.skipItem = fyne.NewMenuItem("Skip break", func() {
		if manager.callbacks.OnSkipBreak != nil {
			manager.callbacks.OnSkipBreak()
		}
	})
	manager.skipItem.Disabled = true

	manager.breakNow = fyne.NewMenuItem("Take a break now", func() {
		if manager.callbacks.OnBreakNow != nil {
			manager.callbacks.OnBreakNow()
		}
	})

	manager.pauseItem = fyne.NewMenuItem("Pause", func() {
		if manager.callbacks.OnTogglePause != nil {
			manager.callbacks.OnTogglePause()
		}
	})

	manager.refreshMenu()
	return manager
}

func pauseForItem(manager *Manager, duration time.Duration, label string) *fyne.MenuItem {
	return fyne.NewMenuItem(label, func() {
		if manager.callbacks.OnPauseFor != nil {
			manager.callbacks.OnPauseFor(duration)
		}
	})
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.refreshStatus()
}

// SetPaused updates pause state.
func (manager *Manager) SetPaused(paused bool) {
	manager.paused = paused
	if paused {
		manager.pauseItem.Label = "Resume"
	} else {
		manager.pauseItem.Label = "Pause"
	}
	manager.refreshStatus()
}

// SetBreakDue toggles the actions available while a break is owed.
func (manager *Manager) SetBreakDue(due bool) {
	manager.startItem.Disabled = !due
	manager.snoozeItem.Disabled = !due
	manager.refreshMenu()
}

// SetInBreak toggles break-related menu items.
func (manager *Manager) SetInBreak(inBreak bool) {
	manager.skipItem.Disabled = !inBreak
	manager.refreshMenu()
}

func (manager *Manager) refreshStatus() {
	status := manager.statusLabel
	if manager.paused {
		status = fmt.Sprintf("%s (paused)", status)
	}
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("Focust",
		manager.statusItem,
		manager.startItem,
		manager.snoozeItem,
		manager.skipItem,
		manager.breakNow,
		manager.pauseFor,
		manager.pauseItem,
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	))
}
