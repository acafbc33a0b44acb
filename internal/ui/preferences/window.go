package preferences

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the preferences UI.
type Window struct {
	window     fyne.Window
	settings   Settings
	onSave     func(Settings)
	autoStart  *widget.Check
	floating   *widget.Check
	popup      *widget.Check
	width      *widget.Entry
	height     *widget.Entry
	opacity    *widget.Slider
	volumeStep *widget.Entry
	label      *widget.Entry
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("FeedFloat Settings")

	prefs := &Window{
		window:     window,
		onSave:     onSave,
		autoStart:  widget.NewCheck("Start the timer as soon as the window opens", nil),
		floating:   widget.NewCheck("Use an undecorated floating window", nil),
		popup:      widget.NewCheck("Allow a separate popup window", nil),
		width:      widget.NewEntry(),
		height:     widget.NewEntry(),
		opacity:    widget.NewSlider(0.5, 1),
		volumeStep: widget.NewEntry(),
		label:      widget.NewEntry(),
	}
	prefs.opacity.Step = 0.05
	prefs.label.SetPlaceHolder("{{#is_bottle}}{{volume}} ml{{/is_bottle}}")

	form := container.NewVBox(
		widget.NewLabelWithStyle("Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.autoStart,
		container.NewHBox(widget.NewLabel("Bottle step"), prefs.volumeStep, widget.NewLabel("ml")),
		widget.NewLabel("Entry label template"),
		prefs.label,
		widget.NewLabelWithStyle("Floating window", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.floating,
		prefs.popup,
		container.NewHBox(widget.NewLabel("Size"), prefs.width, widget.NewLabel("x"), prefs.height),
		widget.NewLabel("Floating window opacity"),
		prefs.opacity,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", func() {
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(440, 460))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.autoStart.SetChecked(settings.AutoStart)
	prefs.floating.SetChecked(settings.FloatingEnabled)
	prefs.popup.SetChecked(settings.PopupEnabled)
	prefs.width.SetText(fmt.Sprintf("%d", int(settings.FloatingWidth)))
	prefs.height.SetText(fmt.Sprintf("%d", int(settings.FloatingHeight)))
	prefs.opacity.Value = settings.FloatingOpacity
	prefs.opacity.Refresh()
	prefs.volumeStep.SetText(strconv.FormatFloat(settings.VolumeStep, 'f', -1, 64))
	prefs.label.SetText(settings.LabelTemplate)
}

func (prefs *Window) handleSave() {
	prefs.settings = prefs.collect()
	if prefs.onSave != nil {
		prefs.onSave(prefs.settings)
	}
	prefs.window.Hide()
}

func (prefs *Window) collect() Settings {
	settings := prefs.settings

	if width, ok := parsePositiveInt(prefs.width.Text); ok {
		settings.FloatingWidth = float32(width)
	}
	if height, ok := parsePositiveInt(prefs.height.Text); ok {
		settings.FloatingHeight = float32(height)
	}
	if step, err := strconv.ParseFloat(prefs.volumeStep.Text, 64); err == nil && step > 0 {
		settings.VolumeStep = step
	}

	settings.AutoStart = prefs.autoStart.Checked
	settings.FloatingEnabled = prefs.floating.Checked
	settings.PopupEnabled = prefs.popup.Checked
	settings.FloatingOpacity = prefs.opacity.Value
	settings.LabelTemplate = prefs.label.Text
	return settings
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
