package model

import (
	"errors"
	"fmt"
	"time"
)

// BreakKind identifies the flavour of an owed break.
type BreakKind string

const (
	BreakShort BreakKind = "short"
	BreakLong  BreakKind = "long"
)

// ScheduleConfig contains the timing policy for one scheduling session.
// A zero idle threshold disables that idle policy.
type ScheduleConfig struct {
	WorkInterval       time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration

	// LongBreakEvery is the number of completed short breaks after which
	// the next owed break is a long one.
	LongBreakEvery int

	IdlePauseAfter time.Duration
	IdleResetAfter time.Duration

	// SnoozeDuration is the default deferral applied when a snooze request
	// carries no explicit duration. MaxSnooze caps any single deferral.
	// MaxSnoozeCount caps consecutive snoozes of one owed break; zero means
	// unlimited.
	SnoozeDuration time.Duration
	MaxSnooze      time.Duration
	MaxSnoozeCount int

	Skippable bool

	// AutoStartAfter is how long an owed break waits for the user before it
	// starts on its own. Zero waits indefinitely.
	AutoStartAfter time.Duration
}

// Validate reports whether the configuration describes a usable schedule.
func (config ScheduleConfig) Validate() error {
	if config.WorkInterval <= 0 {
		return fmt.Errorf("work interval must be positive, got %v", config.WorkInterval)
	}
	if config.ShortBreakDuration <= 0 {
		return fmt.Errorf("short break duration must be positive, got %v", config.ShortBreakDuration)
	}
	if config.LongBreakDuration <= 0 {
		return fmt.Errorf("long break duration must be positive, got %v", config.LongBreakDuration)
	}
	if config.LongBreakEvery < 1 {
		return fmt.Errorf("long break interval must be at least 1, got %d", config.LongBreakEvery)
	}
	if config.IdlePauseAfter < 0 || config.IdleResetAfter < 0 {
		return errors.New("idle thresholds must not be negative")
	}
	if config.IdlePauseAfter > 0 && config.IdleResetAfter > 0 &&
		config.IdleResetAfter <= config.IdlePauseAfter {
		return fmt.Errorf("idle reset threshold (%v) must exceed idle pause threshold (%v)",
			config.IdleResetAfter, config.IdlePauseAfter)
	}
	if config.SnoozeDuration <= 0 {
		return fmt.Errorf("snooze duration must be positive, got %v", config.SnoozeDuration)
	}
	if config.MaxSnooze < config.SnoozeDuration {
		return fmt.Errorf("max snooze (%v) must not be below the default snooze (%v)",
			config.MaxSnooze, config.SnoozeDuration)
	}
	if config.MaxSnoozeCount < 0 {
		return errors.New("max snooze count must not be negative")
	}
	if config.AutoStartAfter < 0 {
		return errors.New("auto-start timeout must not be negative")
	}
	return nil
}

// BreakDuration returns the configured duration for the given break kind.
func (config ScheduleConfig) BreakDuration(kind BreakKind) time.Duration {
	if kind == BreakLong {
		return config.LongBreakDuration
	}
	return config.ShortBreakDuration
}
