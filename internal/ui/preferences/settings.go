package preferences

import (
	"feedfloat/internal/core/feeder"
	"feedfloat/internal/core/model"
	"feedfloat/internal/ui/surface"

	"fyne.io/fyne/v2"
)

// Settings defines editable user preferences.
type Settings struct {
	AutoStart       bool
	FloatingEnabled bool
	PopupEnabled    bool
	FloatingWidth   float32
	FloatingHeight  float32
	FloatingOpacity float64
	VolumeStep      float64
	LabelTemplate   string
}

// DefaultSettings returns default settings for FeedFloat.
func DefaultSettings() Settings {
	return Settings{
		AutoStart:       true,
		FloatingEnabled: true,
		PopupEnabled:    true,
		FloatingWidth:   320,
		FloatingHeight:  240,
		FloatingOpacity: 1,
		VolumeStep:      feeder.DefaultVolumeStep,
	}
}

// SurfaceSpec converts settings to the floating surface description.
func (settings Settings) SurfaceSpec() surface.Spec {
	return surface.Spec{
		Title:   "FeedFloat timer",
		Size:    fyne.NewSize(settings.FloatingWidth, settings.FloatingHeight),
		Opacity: opacityToAlpha(settings.FloatingOpacity),
	}
}

// OpenContext returns the session hints implied by the settings.
func (settings Settings) OpenContext() model.OpenContext {
	autoStart := settings.AutoStart
	return model.OpenContext{AutoStart: &autoStart}
}

func opacityToAlpha(opacity float64) uint8 {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return uint8(opacity * 255)
}
