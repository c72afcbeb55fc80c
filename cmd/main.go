package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/scheduler"
	"github.com/pilgrimlyieu/Focust-sub001/internal/core/suggest"
	"github.com/pilgrimlyieu/Focust-sub001/internal/history"
	"github.com/pilgrimlyieu/Focust-sub001/internal/notify"
	"github.com/pilgrimlyieu/Focust-sub001/internal/platform"
	"github.com/pilgrimlyieu/Focust-sub001/internal/storage"
	"github.com/pilgrimlyieu/Focust-sub001/internal/ui/tray"
)

const appName = "Focust"

func main() {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		log.Printf("single instance: %v", err)
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	settings, err := storage.LoadSettings(appName)
	if err != nil {
		log.Printf("load settings: %v (using defaults)", err)
	}

	engine, err := scheduler.New(settings.ScheduleConfig(), scheduler.Options{TickInterval: time.Second})
	if err != nil {
		log.Printf("scheduler config: %v", err)
		return
	}
	engine.SetIdleChecker(platform.NewIdleProvider())
	engine.SetSuggestionProvider(suggest.NewPoolProvider(suggest.DefaultPools(), 2))

	applyAutostart(settings.Autostart)

	fyneApp := app.NewWithID("com.focust.app")
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		log.Printf("system tray unsupported on this platform")
		return
	}

	notifier := notify.New(fyneApp, settings.Notifications)
	go notifier.Run(engine.Subscribe(16))

	if store := openHistory(); store != nil {
		defer func() {
			_ = store.Close()
		}()
		go history.NewRecorder(store).Run(engine.Subscribe(16))
	}

	isPaused := false
	var pauseTimer *time.Timer
	var trayManager *tray.Manager
	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnTogglePause: func() {
			if isPaused {
				if err := engine.Resume(); err != nil {
					return
				}
				isPaused = false
			} else {
				if err := engine.Pause(); err != nil {
					return
				}
				isPaused = true
			}
			trayManager.SetPaused(isPaused)
		},
		OnPauseFor: func(duration time.Duration) {
			if pauseTimer != nil {
				pauseTimer.Stop()
			}
			if err := engine.Pause(); err != nil {
				return
			}
			isPaused = true
			trayManager.SetPaused(true)
			pauseTimer = time.AfterFunc(duration, func() {
				if err := engine.Resume(); err != nil {
					return
				}
				isPaused = false
			})
		},
		OnStartBreak: func() {
			_ = engine.ForceBreakNow()
		},
		OnSnooze: func(duration time.Duration) {
			_ = engine.Snooze(duration)
		},
		OnSkipBreak: func() {
			if err := engine.Skip(); err != nil {
				log.Printf("skip break: %v", err)
			}
		},
		OnBreakNow: func() {
			_ = engine.ForceBreakNow()
		},
		OnQuit: func() {
			_ = engine.Stop()
			engine.Close()
			fyneApp.Quit()
		},
	})

	events := engine.Subscribe(16)
	go func() {
		for event := range events {
			handleTrayEvent(event, trayManager, &isPaused)
		}
	}()

	engine.Run()
	if err := engine.Start(); err != nil {
		log.Printf("start scheduler: %v", err)
	}

	fyneApp.Run()
}

func handleTrayEvent(event scheduler.Event, trayManager *tray.Manager, isPaused *bool) {
	switch event.Type {
	case scheduler.EventWorkTick:
		if event.State == scheduler.StateWorking {
			trayManager.SetStatus("next break in " + formatRemaining(event.Remaining))
		} else {
			trayManager.SetStatus("break ends in " + formatRemaining(event.Remaining))
		}
	case scheduler.EventBreakDue:
		trayManager.SetBreakDue(true)
		trayManager.SetStatus("break due")
	case scheduler.EventBreakStarted:
		trayManager.SetBreakDue(false)
		trayManager.SetInBreak(true)
	case scheduler.EventBreakEnded:
		trayManager.SetInBreak(false)
	case scheduler.EventSnoozed:
		trayManager.SetBreakDue(false)
		trayManager.SetStatus("snoozed until " + event.Until.Format("15:04"))
	case scheduler.EventResumed:
		*isPaused = false
		trayManager.SetPaused(false)
	case scheduler.EventPaused:
		*isPaused = true
		trayManager.SetPaused(true)
	case scheduler.EventWarning:
		log.Printf("scheduler warning: %s", event.Message)
	}
}

func openHistory() *history.Store {
	dbPath, err := history.DefaultDBPath(appName)
	if err != nil {
		log.Printf("history path: %v", err)
		return nil
	}
	store, err := history.Open(dbPath)
	if err != nil {
		log.Printf("open history: %v", err)
		return nil
	}
	return store
}

func applyAutostart(enabled bool) {
	service := platform.NewService()
	if !enabled {
		if err := service.DisableAutostart(appName); err != nil {
			log.Printf("disable autostart: %v", err)
		}
		return
	}
	execPath, err := os.Executable()
	if err != nil {
		log.Printf("resolve executable: %v", err)
		return
	}
	if err := service.EnableAutostart(appName, execPath); err != nil {
		log.Printf("enable autostart: %v", err)
	}
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining.Seconds())
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
