package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnStartBreast func()
	OnStartBottle func()
	OnShow        func()
	OnPreferences func()
	OnQuit        func()
}

// Menu is the part of desktop.App the tray needs.
type Menu interface {
	SetSystemTrayMenu(menu *fyne.Menu)
}

var _ Menu = desktop.App(nil)

// Manager handles system tray state.
type Manager struct {
	app         Menu
	statusItem  *fyne.MenuItem
	breastItem  *fyne.MenuItem
	bottleItem  *fyne.MenuItem
	callbacks   Callbacks
	active      bool
	statusLabel string
}

// New creates a tray manager with the provided callbacks.
func New(app Menu, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:         app,
		callbacks:   callbacks,
		statusLabel: "idle",
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true
	manager.breastItem = fyne.NewMenuItem("Start breastfeeding", func() {
		if manager.callbacks.OnStartBreast != nil {
			manager.callbacks.OnStartBreast()
		}
	})
	manager.bottleItem = fyne.NewMenuItem("Start bottle", func() {
		if manager.callbacks.OnStartBottle != nil {
			manager.callbacks.OnStartBottle()
		}
	})

	manager.refreshStatus()
	return manager
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.refreshStatus()
}

// SetActive records whether a session is open. While one is, the first start
// item becomes "Show timer" and brings the open timer to the front.
func (manager *Manager) SetActive(active bool) {
	manager.active = active
	if !active {
		manager.statusLabel = "idle"
	}
	manager.refreshStatus()
}

// StatusLabel returns the text currently shown in the status item.
func (manager *Manager) StatusLabel() string {
	return manager.statusItem.Label
}

func (manager *Manager) refreshStatus() {
	manager.statusItem.Label = fmt.Sprintf("Status: %s", manager.statusLabel)
	if manager.active {
		manager.breastItem.Label = "Show timer"
	} else {
		manager.breastItem.Label = "Start breastfeeding"
	}
	manager.bottleItem.Disabled = manager.active
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("FeedFloat",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.breastItem,
		manager.bottleItem,
		fyne.NewMenuItem("Show FeedFloat", func() {
			if manager.callbacks.OnShow != nil {
				manager.callbacks.OnShow()
			}
		}),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	))
}
