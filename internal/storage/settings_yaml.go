package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"feedfloat/internal/ui/preferences"

	"gopkg.in/yaml.v3"
)

const (
	settingsFileName    = "settings.yaml"
	preferencesFileName = "preferences.yaml"
	journalFileName     = "feeds.db"
)

type yamlSettings struct {
	AutoStart       *bool   `yaml:"auto_start"`
	FloatingEnabled *bool   `yaml:"floating_enabled"`
	PopupEnabled    *bool   `yaml:"popup_enabled"`
	FloatingWidth   int     `yaml:"floating_width"`
	FloatingHeight  int     `yaml:"floating_height"`
	FloatingOpacity float64 `yaml:"floating_opacity"`
	VolumeStepMl    float64 `yaml:"volume_step_ml"`
	LabelTemplate   string  `yaml:"label_template"`
}

// LoadSettings reads user preferences from YAML in the app config directory.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	configPath, err := SettingsPath(appName)
	if err != nil {
		return preferences.DefaultSettings(), err
	}
	return LoadSettingsFile(configPath)
}

// LoadSettingsFile reads user preferences from the YAML file at configPath.
func LoadSettingsFile(configPath string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()
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

// SaveSettings writes user preferences to YAML in the app config directory.
func SaveSettings(appName string, settings preferences.Settings) error {
	configPath, err := SettingsPath(appName)
	if err != nil {
		return err
	}
	return SaveSettingsFile(configPath, settings)
}

// SaveSettingsFile writes user preferences to the YAML file at configPath.
func SaveSettingsFile(configPath string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		AutoStart:       &settings.AutoStart,
		FloatingEnabled: &settings.FloatingEnabled,
		PopupEnabled:    &settings.PopupEnabled,
		FloatingWidth:   int(settings.FloatingWidth),
		FloatingHeight:  int(settings.FloatingHeight),
		FloatingOpacity: settings.FloatingOpacity,
		VolumeStepMl:    settings.VolumeStep,
		LabelTemplate:   settings.LabelTemplate,
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

// SettingsPath returns the settings file location for appName.
func SettingsPath(appName string) (string, error) {
	return resolveConfigPath(appName, settingsFileName)
}

// PreferencesPath returns the learned-preferences file location inside dataDir.
func PreferencesPath(dataDir string) string {
	return filepath.Join(dataDir, preferencesFileName)
}

// JournalPath returns the feeding journal database location inside dataDir.
func JournalPath(dataDir string) string {
	return filepath.Join(dataDir, journalFileName)
}

func resolveConfigPath(appName, fileName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, fileName), nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.AutoStart != nil {
		settings.AutoStart = *fileData.AutoStart
	}
	if fileData.FloatingEnabled != nil {
		settings.FloatingEnabled = *fileData.FloatingEnabled
	}
	if fileData.PopupEnabled != nil {
		settings.PopupEnabled = *fileData.PopupEnabled
	}
	if fileData.FloatingWidth >= 160 && fileData.FloatingWidth <= 1600 {
		settings.FloatingWidth = float32(fileData.FloatingWidth)
	}
	if fileData.FloatingHeight >= 120 && fileData.FloatingHeight <= 1200 {
		settings.FloatingHeight = float32(fileData.FloatingHeight)
	}
	if fileData.FloatingOpacity >= 0.5 && fileData.FloatingOpacity <= 1 {
		settings.FloatingOpacity = fileData.FloatingOpacity
	}
	if fileData.VolumeStepMl > 0 && fileData.VolumeStepMl <= 100 {
		settings.VolumeStep = fileData.VolumeStepMl
	}
	settings.LabelTemplate = fileData.LabelTemplate
}
