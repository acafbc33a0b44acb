package document

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"feedfloat/internal/core/feeder"
	"feedfloat/internal/core/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// ErrNotMountable is returned for surfaces that cannot host Fyne content.
var ErrNotMountable = errors.New("surface cannot host a document")

// Mountable is a surface that accepts Fyne content.
type Mountable interface {
	Mount(content fyne.CanvasObject)
}

// Renderer builds feeding documents and mounts them into surfaces.
type Renderer struct {
	VolumeStep float64
}

// Render implements feeder.Renderer.
func (renderer Renderer) Render(surface feeder.Surface, mode model.Mode) (feeder.View, error) {
	target, ok := surface.(Mountable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMountable, surface.Kind())
	}
	document, err := New(mode, renderer.VolumeStep)
	if err != nil {
		return nil, err
	}
	target.Mount(document.Content())
	return document, nil
}

var milkLabels = map[model.MilkType]string{
	model.MilkMaternal: "Maternal",
	model.MilkFormula:  "Formula",
	model.MilkMixed:    "Mixed",
}

var sideLabels = map[model.Side]string{
	model.SideLeft:  "Left",
	model.SideRight: "Right",
	model.SideBoth:  "Both",
}

// Document is the timer UI of one floating session.
type Document struct {
	mode       model.Mode
	volumeStep float64
	content    fyne.CanvasObject

	title   *widget.Label
	status  *widget.Label
	elapsed *canvas.Text
	toggle  *widget.Button
	stop    *widget.Button

	sideButtons map[model.Side]*widget.Button
	alternate   *widget.Button

	decrease    *widget.Button
	increase    *widget.Button
	volumeEntry *widget.Entry
	volumeLabel *canvas.Text
	milk        *widget.RadioGroup

	mu       sync.Mutex
	handlers feeder.Handlers
	syncing  bool
}

// New builds the document for mode.
func New(mode model.Mode, volumeStep float64) (*Document, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", feeder.ErrUnsupportedMode, mode)
	}
	if volumeStep <= 0 {
		volumeStep = feeder.DefaultVolumeStep
	}
	document := &Document{mode: mode, volumeStep: volumeStep}

	titleText := "Breastfeeding"
	if mode == model.ModeBottle {
		titleText = "Bottle"
	}
	document.title = widget.NewLabelWithStyle(titleText, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	document.status = widget.NewLabel("Ready")

	document.elapsed = canvas.NewText("00:00", color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	document.elapsed.Alignment = fyne.TextAlignCenter
	document.elapsed.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	document.elapsed.TextSize = 40

	document.toggle = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		document.fire(func(handlers feeder.Handlers) {
			if handlers.OnToggle != nil {
				handlers.OnToggle()
			}
		})
	})
	document.toggle.Importance = widget.HighImportance
	document.stop = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		document.fire(func(handlers feeder.Handlers) {
			if handlers.OnStop != nil {
				handlers.OnStop()
			}
		})
	})
	document.stop.Importance = widget.DangerImportance

	var controls fyne.CanvasObject
	if mode == model.ModeBreast {
		controls = document.buildBreastControls()
	} else {
		controls = document.buildBottleControls()
	}

	header := container.NewHBox(document.title, layout.NewSpacer(), document.status)
	actions := container.NewGridWithColumns(2, document.toggle, document.stop)
	document.content = container.NewPadded(container.NewVBox(
		header,
		document.elapsed,
		controls,
		actions,
	))
	return document, nil
}

// Content returns the root object to mount.
func (document *Document) Content() fyne.CanvasObject {
	return document.content
}

// Mode returns the feeding mode the document was built for.
func (document *Document) Mode() model.Mode {
	return document.mode
}

// Bind routes user actions to handlers.
func (document *Document) Bind(handlers feeder.Handlers) {
	document.mu.Lock()
	document.handlers = handlers
	document.mu.Unlock()
}

func (document *Document) SetElapsed(text string) {
	document.elapsed.Text = text
	document.elapsed.Refresh()
}

func (document *Document) SetStatus(text string) {
	document.status.SetText(text)
}

func (document *Document) SetRunning(running bool) {
	if running {
		document.toggle.SetText("Pause")
		document.toggle.SetIcon(theme.MediaPauseIcon())
		return
	}
	document.toggle.SetText("Start")
	document.toggle.SetIcon(theme.MediaPlayIcon())
}

func (document *Document) SetSide(side model.Side) {
	for candidate, button := range document.sideButtons {
		if candidate == side {
			button.Importance = widget.HighImportance
		} else {
			button.Importance = widget.MediumImportance
		}
		button.Refresh()
	}
}

func (document *Document) SetVolume(volume float64) {
	if document.volumeLabel == nil {
		return
	}
	formatted := strconv.FormatFloat(volume, 'f', -1, 64)
	document.volumeLabel.Text = formatted + " ml"
	document.volumeLabel.Refresh()

	if current, ok := parseVolume(document.volumeEntry.Text); ok && current == volume {
		return
	}
	document.withSync(func() {
		document.volumeEntry.SetText(formatted)
	})
}

func (document *Document) SetMilkType(milk model.MilkType) {
	if document.milk == nil {
		return
	}
	label, ok := milkLabels[milk]
	if !ok {
		return
	}
	document.withSync(func() {
		document.milk.SetSelected(label)
	})
}

func (document *Document) buildBreastControls() fyne.CanvasObject {
	document.sideButtons = make(map[model.Side]*widget.Button, len(sideLabels))
	buttons := make([]fyne.CanvasObject, 0, len(sideLabels))
	for _, side := range []model.Side{model.SideLeft, model.SideRight, model.SideBoth} {
		selected := side
		button := widget.NewButton(sideLabels[side], func() {
			document.fire(func(handlers feeder.Handlers) {
				if handlers.OnSelectSide != nil {
					handlers.OnSelectSide(selected)
				}
			})
		})
		document.sideButtons[side] = button
		buttons = append(buttons, button)
	}
	document.alternate = widget.NewButtonWithIcon("Alternate", theme.ViewRefreshIcon(), func() {
		document.fire(func(handlers feeder.Handlers) {
			if handlers.OnAlternateSide != nil {
				handlers.OnAlternateSide()
			}
		})
	})
	return container.NewVBox(container.NewGridWithColumns(3, buttons...), document.alternate)
}

func (document *Document) buildBottleControls() fyne.CanvasObject {
	step := document.volumeStep
	document.decrease = widget.NewButtonWithIcon(fmt.Sprintf("-%g", step), theme.ContentRemoveIcon(), func() {
		document.fire(func(handlers feeder.Handlers) {
			if handlers.OnStepVolume != nil {
				handlers.OnStepVolume(-step)
			}
		})
	})
	document.increase = widget.NewButtonWithIcon(fmt.Sprintf("+%g", step), theme.ContentAddIcon(), func() {
		document.fire(func(handlers feeder.Handlers) {
			if handlers.OnStepVolume != nil {
				handlers.OnStepVolume(step)
			}
		})
	})

	document.volumeLabel = canvas.NewText("0 ml", theme.Color(theme.ColorNameForeground))
	document.volumeLabel.Alignment = fyne.TextAlignCenter
	document.volumeLabel.TextStyle = fyne.TextStyle{Bold: true}
	document.volumeLabel.TextSize = 20

	document.volumeEntry = widget.NewEntry()
	document.volumeEntry.SetPlaceHolder("ml")
	document.volumeEntry.OnChanged = func(text string) {
		volume, ok := parseVolume(text)
		if !ok {
			return
		}
		document.fire(func(handlers feeder.Handlers) {
			if handlers.OnVolumeEntered != nil {
				handlers.OnVolumeEntered(volume)
			}
		})
	}

	options := make([]string, 0, len(milkLabels))
	for _, milk := range model.MilkTypes() {
		options = append(options, milkLabels[milk])
	}
	document.milk = widget.NewRadioGroup(options, func(selected string) {
		for milk, label := range milkLabels {
			if label != selected {
				continue
			}
			chosen := milk
			document.fire(func(handlers feeder.Handlers) {
				if handlers.OnMilkType != nil {
					handlers.OnMilkType(chosen)
				}
			})
			return
		}
	})
	document.milk.Horizontal = true
	document.milk.Required = true

	stepper := container.NewBorder(nil, nil, document.decrease, document.increase, document.volumeLabel)
	return container.NewVBox(stepper, document.volumeEntry, document.milk)
}

// fire runs action with the bound handlers unless the change came from the
// controller itself.
func (document *Document) fire(action func(handlers feeder.Handlers)) {
	document.mu.Lock()
	if document.syncing {
		document.mu.Unlock()
		return
	}
	handlers := document.handlers
	document.mu.Unlock()
	action(handlers)
}

func (document *Document) withSync(apply func()) {
	document.mu.Lock()
	document.syncing = true
	document.mu.Unlock()

	apply()

	document.mu.Lock()
	document.syncing = false
	document.mu.Unlock()
}

func parseVolume(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	volume, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return 0, false
	}
	return volume, true
}
