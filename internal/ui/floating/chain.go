package floating

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"feedfloat/internal/core/feeder"
	"feedfloat/internal/ui/preferences"
	"feedfloat/internal/ui/surface"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// Chain provisions floating surfaces in preference order: an undecorated
// floating window, a popup window, then an overlay on the host window.
type Chain struct {
	app  fyne.App
	host fyne.Window

	mu          sync.Mutex
	provisioner *surface.Provisioner
}

// NewChain builds the surface chain for settings.
func NewChain(app fyne.App, host fyne.Window, settings preferences.Settings) *Chain {
	chain := &Chain{app: app, host: host}
	chain.Update(settings)
	return chain
}

// Update rebuilds the chain after the settings changed. Open surfaces keep
// their current shape.
func (chain *Chain) Update(settings preferences.Settings) {
	provisioner := surface.NewProvisioner(settings.SurfaceSpec(),
		surface.FloatingStrategy{App: chain.app, Enabled: settings.FloatingEnabled},
		surface.PopupStrategy{App: chain.app, Enabled: settings.PopupEnabled},
		surface.OverlayStrategy{Host: chain.host},
	)
	chain.mu.Lock()
	chain.provisioner = provisioner
	chain.mu.Unlock()
}

// Request implements feeder.Provisioner.
func (chain *Chain) Request(ctx context.Context) (feeder.Surface, error) {
	chain.mu.Lock()
	provisioner := chain.provisioner
	chain.mu.Unlock()

	opened, err := provisioner.Request(ctx)
	if err != nil {
		return nil, err
	}
	if opened.Fallback() {
		slog.Warn("floating window unavailable, timer shown inside the main window", "surface", opened.Kind())
	}
	return opened, nil
}

// Alerter reports session failures in a dialog on the host window.
// It must be called on the UI thread.
type Alerter struct {
	Window fyne.Window
}

func (alerter Alerter) Alert(err error) {
	if alerter.Window == nil {
		slog.Error("no window to report error", "error", err)
		return
	}
	if errors.Is(err, surface.ErrNoSurface) {
		err = errors.New("the feeding timer could not be opened: no window or overlay is available")
	}
	dialog.ShowError(err, alerter.Window)
}
