package surface

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// FloatingStrategy opens an undecorated native window sized like a
// picture-in-picture player.
type FloatingStrategy struct {
	App     fyne.App
	Enabled bool
}

func (strategy FloatingStrategy) Kind() Kind {
	return KindFloating
}

func (strategy FloatingStrategy) Open(ctx context.Context, spec Spec) (Surface, error) {
	if !strategy.Enabled || strategy.App == nil {
		return nil, fmt.Errorf("%w: floating windows disabled", ErrUnavailable)
	}
	driver, ok := strategy.App.Driver().(splashWindowDriver)
	if !ok {
		return nil, fmt.Errorf("%w: driver has no undecorated windows", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	window := driver.CreateSplashWindow()
	if window == nil {
		return nil, ErrBlocked
	}
	window.SetTitle(spec.Title)
	window.SetPadded(false)
	window.Resize(spec.Size)
	window.SetFixedSize(true)
	applyNativeOpacity(window, spec.Opacity)
	window.Show()
	return newWindowSurface(KindFloating, window), nil
}

// PopupStrategy opens a regular named window.
type PopupStrategy struct {
	App     fyne.App
	Enabled bool
}

func (strategy PopupStrategy) Kind() Kind {
	return KindPopup
}

func (strategy PopupStrategy) Open(ctx context.Context, spec Spec) (Surface, error) {
	if !strategy.Enabled || strategy.App == nil {
		return nil, fmt.Errorf("%w: popup windows disabled", ErrBlocked)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	window := strategy.App.NewWindow(spec.Title)
	if window == nil {
		return nil, ErrBlocked
	}
	if icon := strategy.App.Icon(); icon != nil {
		window.SetIcon(icon)
	}
	window.Resize(spec.Size)
	window.Show()
	return newWindowSurface(KindPopup, window), nil
}

type windowSurface struct {
	kind   Kind
	window fyne.Window

	mu        sync.Mutex
	closed    bool
	onDismiss func()
}

func newWindowSurface(kind Kind, window fyne.Window) *windowSurface {
	surface := &windowSurface{kind: kind, window: window}
	window.SetOnClosed(surface.handleClosed)
	return surface
}

func (surface *windowSurface) Kind() string {
	return string(surface.kind)
}

func (surface *windowSurface) Fallback() bool {
	return false
}

func (surface *windowSurface) Mount(content fyne.CanvasObject) {
	surface.window.SetContent(content)
}

func (surface *windowSurface) Focus() {
	surface.mu.Lock()
	closed := surface.closed
	surface.mu.Unlock()
	if closed {
		return
	}
	surface.window.Show()
	surface.window.RequestFocus()
}

func (surface *windowSurface) Close() {
	surface.mu.Lock()
	if surface.closed {
		surface.mu.Unlock()
		return
	}
	surface.closed = true
	surface.onDismiss = nil
	surface.mu.Unlock()

	surface.window.SetOnClosed(func() {})
	surface.window.Close()
}

func (surface *windowSurface) SetOnDismiss(handler func()) {
	surface.mu.Lock()
	surface.onDismiss = handler
	surface.mu.Unlock()
}

func (surface *windowSurface) handleClosed() {
	surface.mu.Lock()
	if surface.closed {
		surface.mu.Unlock()
		return
	}
	surface.closed = true
	handler := surface.onDismiss
	surface.onDismiss = nil
	surface.mu.Unlock()

	if handler != nil {
		handler()
	}
}
