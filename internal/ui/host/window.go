package host

import (
	"context"
	"fmt"
	"strings"

	"feedfloat/internal/core/feeder"
	"feedfloat/internal/core/model"
	"feedfloat/internal/core/timefmt"
	"feedfloat/internal/ui/surface"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// HistoryLimit is how many recent feeds the main window lists.
const HistoryLimit = 20

// History reads recently completed feeds.
type History interface {
	Recent(ctx context.Context, limit int) ([]model.SessionDraft, error)
}

// Actions are the main window's outgoing requests.
type Actions struct {
	OnStart func(mode model.Mode)
	OnClose func()
}

// Window is the main FeedFloat window. It also hosts the overlay fallback.
type Window struct {
	window  fyne.Window
	history History
	actions Actions

	status  *widget.Label
	breast  *widget.Button
	bottle  *widget.Button
	list    *widget.List
	empty   *widget.Label
	entries []model.SessionDraft
}

// New creates the main window.
func New(app fyne.App, history History, actions Actions) *Window {
	host := &Window{
		window:  app.NewWindow("FeedFloat"),
		history: history,
		actions: actions,
		status:  widget.NewLabel(StatusText(feeder.Snapshot{State: feeder.StateIdle})),
		empty:   widget.NewLabel("No feeds recorded yet."),
	}

	host.breast = widget.NewButtonWithIcon("Breastfeeding", theme.MediaPlayIcon(), func() {
		host.start(model.ModeBreast)
	})
	host.breast.Importance = widget.HighImportance
	host.bottle = widget.NewButtonWithIcon("Bottle", theme.MediaPlayIcon(), func() {
		host.start(model.ModeBottle)
	})
	host.bottle.Importance = widget.HighImportance

	host.list = widget.NewList(
		func() int { return len(host.entries) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, object fyne.CanvasObject) {
			if id < 0 || id >= len(host.entries) {
				return
			}
			object.(*widget.Label).SetText(HistoryLine(host.entries[id]))
		},
	)

	header := container.NewVBox(
		container.NewGridWithColumns(2, host.breast, host.bottle),
		host.status,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Recent feeds", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	host.window.SetContent(container.NewBorder(header, nil, nil, nil, container.NewStack(host.empty, host.list)))
	host.window.Resize(fyne.NewSize(420, 520))
	host.window.SetCloseIntercept(func() {
		if host.actions.OnClose != nil {
			host.actions.OnClose()
			return
		}
		host.window.Hide()
	})
	return host
}

// Window returns the underlying Fyne window.
func (host *Window) Window() fyne.Window {
	return host.window
}

// Show displays the main window.
func (host *Window) Show() {
	host.window.Show()
	host.window.RequestFocus()
}

// SetSnapshot reflects the controller state in the status line. The start
// buttons stay live during a session so pressing one again brings the open
// timer back to the front.
func (host *Window) SetSnapshot(snapshot feeder.Snapshot) {
	host.status.SetText(StatusText(snapshot))
}

// Reveal shows the main window when the timer lives inside it.
func (host *Window) Reveal(snapshot feeder.Snapshot) {
	if snapshot.SurfaceKind == string(surface.KindOverlay) {
		host.Show()
	}
}

// Reload refreshes the recent feeds list.
func (host *Window) Reload(ctx context.Context) error {
	if host.history == nil {
		return nil
	}
	entries, err := host.history.Recent(ctx, HistoryLimit)
	if err != nil {
		return fmt.Errorf("load recent feeds: %w", err)
	}
	host.entries = entries
	if len(entries) == 0 {
		host.empty.Show()
	} else {
		host.empty.Hide()
	}
	host.list.Refresh()
	return nil
}

// Entries returns the feeds currently listed.
func (host *Window) Entries() []model.SessionDraft {
	return host.entries
}

func (host *Window) start(mode model.Mode) {
	if host.actions.OnStart != nil {
		host.actions.OnStart(mode)
	}
}

// StatusText summarises a controller snapshot, e.g. "Bottle running 05:12".
func StatusText(snapshot feeder.Snapshot) string {
	switch snapshot.State {
	case feeder.StateOpening:
		return "Opening timer..."
	case feeder.StateClosing:
		return "Saving feed..."
	case feeder.StateActive:
	default:
		return "idle"
	}
	name := "Breastfeeding"
	if snapshot.Mode == model.ModeBottle {
		name = "Bottle"
	}
	verb := "paused"
	if snapshot.Running {
		verb = "running"
	}
	return fmt.Sprintf("%s %s %s", name, verb, timefmt.FormatDuration(snapshot.Elapsed))
}

// HistoryLine renders one journal entry for the list.
func HistoryLine(draft model.SessionDraft) string {
	parts := []string{draft.Label, timefmt.FormatDuration(draft.Duration)}
	if !draft.Start.IsZero() {
		parts = append(parts, timefmt.FormatTime(draft.Start), timefmt.Since(draft.Start))
	} else {
		parts = append(parts, timefmt.Since(draft.CreatedAt))
	}
	return strings.Join(parts, " · ")
}
