package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	WorkIntervalMinutes int `yaml:"work_interval_minutes"`
	ShortBreakMinutes   int `yaml:"short_break_minutes"`
	LongBreakMinutes    int `yaml:"long_break_minutes"`
	LongBreakEvery      int `yaml:"long_break_every"`

	IdleEnabled      *bool `yaml:"idle_enabled"`
	IdlePauseSeconds int   `yaml:"idle_pause_seconds"`
	IdleResetSeconds int   `yaml:"idle_reset_seconds"`

	SnoozeMinutes    int `yaml:"snooze_minutes"`
	MaxSnoozeMinutes int `yaml:"max_snooze_minutes"`
	MaxSnoozeCount   int `yaml:"max_snooze_count"`

	Skippable        *bool `yaml:"skippable"`
	AutoStartSeconds int   `yaml:"auto_start_seconds"`

	Notifications *bool `yaml:"notifications"`
	Autostart     *bool `yaml:"autostart"`
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (model.Settings, error) {
	settings := model.DefaultSettings()
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return settings, err
	}

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(appName string, settings model.Settings) error {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		WorkIntervalMinutes: int(settings.WorkInterval / time.Minute),
		ShortBreakMinutes:   int(settings.ShortBreakDuration / time.Minute),
		LongBreakMinutes:    int(settings.LongBreakDuration / time.Minute),
		LongBreakEvery:      settings.LongBreakEvery,
		IdleEnabled:         &settings.IdleEnabled,
		IdlePauseSeconds:    int(settings.IdlePauseAfter / time.Second),
		IdleResetSeconds:    int(settings.IdleResetAfter / time.Second),
		SnoozeMinutes:       int(settings.SnoozeDuration / time.Minute),
		MaxSnoozeMinutes:    int(settings.MaxSnooze / time.Minute),
		MaxSnoozeCount:      settings.MaxSnoozeCount,
		Skippable:           &settings.Skippable,
		AutoStartSeconds:    int(settings.AutoStartAfter / time.Second),
		Notifications:       &settings.Notifications,
		Autostart:           &settings.Autostart,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func resolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *model.Settings, fileData yamlSettings) {
	if fileData.WorkIntervalMinutes > 0 {
		settings.WorkInterval = time.Duration(fileData.WorkIntervalMinutes) * time.Minute
	}
	if fileData.ShortBreakMinutes > 0 {
		settings.ShortBreakDuration = time.Duration(fileData.ShortBreakMinutes) * time.Minute
	}
	if fileData.LongBreakMinutes > 0 {
		settings.LongBreakDuration = time.Duration(fileData.LongBreakMinutes) * time.Minute
	}
	if fileData.LongBreakEvery > 0 {
		settings.LongBreakEvery = fileData.LongBreakEvery
	}

	if fileData.IdleEnabled != nil {
		settings.IdleEnabled = *fileData.IdleEnabled
	}
	if fileData.IdlePauseSeconds > 0 {
		settings.IdlePauseAfter = time.Duration(fileData.IdlePauseSeconds) * time.Second
	}
	if fileData.IdleResetSeconds > 0 {
		settings.IdleResetAfter = time.Duration(fileData.IdleResetSeconds) * time.Second
	}

	if fileData.SnoozeMinutes > 0 {
		settings.SnoozeDuration = time.Duration(fileData.SnoozeMinutes) * time.Minute
	}
	if fileData.MaxSnoozeMinutes > 0 {
		settings.MaxSnooze = time.Duration(fileData.MaxSnoozeMinutes) * time.Minute
	}
	if fileData.MaxSnoozeCount > 0 {
		settings.MaxSnoozeCount = fileData.MaxSnoozeCount
	}

	if fileData.Skippable != nil {
		settings.Skippable = *fileData.Skippable
	}
	if fileData.AutoStartSeconds > 0 {
		settings.AutoStartAfter = time.Duration(fileData.AutoStartSeconds) * time.Second
	}

	if fileData.Notifications != nil {
		settings.Notifications = *fileData.Notifications
	}
	if fileData.Autostart != nil {
		settings.Autostart = *fileData.Autostart
	}
}
