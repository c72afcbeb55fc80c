package model

import "time"

// Settings defines editable user preferences.
type Settings struct {
	WorkInterval       time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration
	LongBreakEvery     int

	IdleEnabled    bool
	IdlePauseAfter time.Duration
	IdleResetAfter time.Duration

	SnoozeDuration time.Duration
	MaxSnooze      time.Duration
	MaxSnoozeCount int

	Skippable      bool
	AutoStartAfter time.Duration

	Notifications bool
	Autostart     bool
}

// DefaultSettings returns default settings for Focust.
func DefaultSettings() Settings {
	return Settings{
		WorkInterval:       25 * time.Minute,
		ShortBreakDuration: 5 * time.Minute,
		LongBreakDuration:  15 * time.Minute,
		LongBreakEvery:     4,

		IdleEnabled:    true,
		IdlePauseAfter: time.Minute,
		IdleResetAfter: 10 * time.Minute,

		SnoozeDuration: 5 * time.Minute,
		MaxSnooze:      15 * time.Minute,
		MaxSnoozeCount: 3,

		Skippable:      true,
		AutoStartAfter: 2 * time.Minute,

		Notifications: true,
		Autostart:     false,
	}
}

// ScheduleConfig converts settings to the scheduler's configuration.
func (settings Settings) ScheduleConfig() ScheduleConfig {
	config := ScheduleConfig{
		WorkInterval:       settings.WorkInterval,
		ShortBreakDuration: settings.ShortBreakDuration,
		LongBreakDuration:  settings.LongBreakDuration,
		LongBreakEvery:     settings.LongBreakEvery,
		SnoozeDuration:     settings.SnoozeDuration,
		MaxSnooze:          settings.MaxSnooze,
		MaxSnoozeCount:     settings.MaxSnoozeCount,
		Skippable:          settings.Skippable,
		AutoStartAfter:     settings.AutoStartAfter,
	}
	if settings.IdleEnabled {
		config.IdlePauseAfter = settings.IdlePauseAfter
		config.IdleResetAfter = settings.IdleResetAfter
	}
	return config
}
