package surface

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const pulseDuration = 600 * time.Millisecond

var (
	backdropColor = color.NRGBA{R: 0, G: 0, B: 0, A: 140}
	cardColor     = color.NRGBA{R: 32, G: 34, B: 40, A: 255}
	pulseColor    = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
)

// OverlayStrategy draws the surface as a modal card on top of the host window.
// It is the last resort and only fails when there is no host canvas.
type OverlayStrategy struct {
	Host fyne.Window
}

func (strategy OverlayStrategy) Kind() Kind {
	return KindOverlay
}

func (strategy OverlayStrategy) Open(ctx context.Context, spec Spec) (Surface, error) {
	if strategy.Host == nil || strategy.Host.Canvas() == nil {
		return nil, fmt.Errorf("%w: no host canvas for overlay", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	surface := newOverlaySurface(strategy.Host.Canvas(), spec)
	surface.show()
	return surface, nil
}

// tapArea is a rectangle that receives taps. A nil handler swallows them.
type tapArea struct {
	widget.BaseWidget
	fill     color.Color
	onTapped func()
}

func newTapArea(fill color.Color, onTapped func()) *tapArea {
	area := &tapArea{fill: fill, onTapped: onTapped}
	area.ExtendBaseWidget(area)
	return area
}

func (area *tapArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(area.fill))
}

func (area *tapArea) Tapped(*fyne.PointEvent) {
	if area.onTapped != nil {
		area.onTapped()
	}
}

type overlaySurface struct {
	canvas      fyne.Canvas
	root        fyne.CanvasObject
	slot        *fyne.Container
	border      *canvas.Rectangle
	backdrop    *tapArea
	closeButton *widget.Button

	mu        sync.Mutex
	closed    bool
	pulses    int
	onDismiss func()
}

func newOverlaySurface(target fyne.Canvas, spec Spec) *overlaySurface {
	surface := &overlaySurface{canvas: target}

	surface.backdrop = newTapArea(backdropColor, surface.dismiss)
	surface.slot = container.NewStack()
	surface.border = canvas.NewRectangle(color.Transparent)
	surface.border.StrokeWidth = 3
	surface.border.StrokeColor = color.Transparent
	surface.border.CornerRadius = theme.InputRadiusSize()

	title := widget.NewLabelWithStyle(spec.Title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	surface.closeButton = widget.NewButtonWithIcon("", theme.CancelIcon(), surface.dismiss)
	surface.closeButton.Importance = widget.LowImportance
	header := container.NewBorder(nil, nil, nil, surface.closeButton, title)

	card := container.NewStack(
		newTapArea(cardColor, nil),
		container.NewPadded(container.NewBorder(header, nil, nil, nil, surface.slot)),
		surface.border,
	)
	sized := container.NewGridWrap(spec.Size, card)
	surface.root = container.NewStack(surface.backdrop, container.NewCenter(sized))
	return surface
}

func (surface *overlaySurface) show() {
	surface.canvas.Overlays().Add(surface.root)
	surface.root.Resize(surface.canvas.Size())
}

func (surface *overlaySurface) Kind() string {
	return string(KindOverlay)
}

func (surface *overlaySurface) Fallback() bool {
	return true
}

func (surface *overlaySurface) Mount(content fyne.CanvasObject) {
	surface.slot.Objects = []fyne.CanvasObject{content}
	surface.slot.Refresh()
}

// Focus raises the overlay above other overlays and pulses its border. The
// host window itself cannot be raised from here.
func (surface *overlaySurface) Focus() {
	surface.mu.Lock()
	if surface.closed {
		surface.mu.Unlock()
		return
	}
	surface.pulses++
	surface.mu.Unlock()

	overlays := surface.canvas.Overlays()
	if overlays.Top() != surface.root {
		overlays.Remove(surface.root)
		surface.show()
	}
	pulse := canvas.NewColorRGBAAnimation(pulseColor, color.Transparent, pulseDuration, func(value color.Color) {
		surface.border.StrokeColor = value
		surface.border.Refresh()
	})
	pulse.Start()
}

func (surface *overlaySurface) Close() {
	surface.mu.Lock()
	if surface.closed {
		surface.mu.Unlock()
		return
	}
	surface.closed = true
	surface.onDismiss = nil
	surface.mu.Unlock()

	surface.canvas.Overlays().Remove(surface.root)
}

func (surface *overlaySurface) SetOnDismiss(handler func()) {
	surface.mu.Lock()
	surface.onDismiss = handler
	surface.mu.Unlock()
}

// Pulses reports how many times Focus pulsed the overlay.
func (surface *overlaySurface) Pulses() int {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	return surface.pulses
}

func (surface *overlaySurface) dismiss() {
	surface.mu.Lock()
	if surface.closed {
		surface.mu.Unlock()
		return
	}
	handler := surface.onDismiss
	surface.mu.Unlock()

	if handler != nil {
		handler()
		return
	}
	surface.Close()
}
