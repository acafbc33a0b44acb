package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedfloat/internal/core/bottle"
	"feedfloat/internal/core/feeder"
	"feedfloat/internal/core/model"
	"feedfloat/internal/platform"
	"feedfloat/internal/storage"
	"feedfloat/internal/storage/journal"
	"feedfloat/internal/storage/kv"
	"feedfloat/internal/ui/document"
	"feedfloat/internal/ui/floating"
	"feedfloat/internal/ui/host"
	"feedfloat/internal/ui/preferences"
	"feedfloat/internal/ui/tray"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/spf13/cobra"
)

const (
	statusInterval = time.Second
	saveTimeout    = 5 * time.Second
)

func runGUI(cmd *cobra.Command, args []string) error {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			slog.Warn("FeedFloat is already running", "error", err)
			return nil
		}
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	settings, err := storage.LoadSettings(appName)
	if err != nil {
		slog.Warn("settings unreadable, using defaults", "error", err)
		settings = preferences.DefaultSettings()
	}

	feeds, err := journal.Open(storage.JournalPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		_ = feeds.Close()
	}()

	learner := bottle.NewLearner(newPreferenceStore(dataDir))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fyneApp := app.NewWithID(appID)

	var (
		controller  *feeder.Controller
		trayManager *tray.Manager
		mainWindow  *host.Window
	)

	reloadHistory := func() {
		if err := mainWindow.Reload(ctx); err != nil {
			slog.Error("failed to refresh history", "error", err)
		}
	}
	lastStatus := ""
	refreshStatus := func() {
		snapshot := controller.Snapshot()
		mainWindow.SetSnapshot(snapshot)
		status := host.StatusText(snapshot)
		if trayManager == nil || status == lastStatus {
			return
		}
		lastStatus = status
		trayManager.SetActive(snapshot.State != feeder.StateIdle)
		trayManager.SetStatus(status)
	}
	open := func(mode model.Mode) {
		controller.Open(ctx, mode, settings.OpenContext())
		mainWindow.Reveal(controller.Snapshot())
		refreshStatus()
	}

	mainWindow = host.New(fyneApp, feeds, host.Actions{
		OnStart: open,
		OnClose: func() {
			controller.HandleUnload()
			if trayManager == nil {
				fyneApp.Quit()
				return
			}
			mainWindow.Window().Hide()
		},
	})
	chain := floating.NewChain(fyneApp, mainWindow.Window(), settings)

	controller = feeder.New(chain,
		document.Renderer{VolumeStep: settings.VolumeStep},
		learner,
		floating.Alerter{Window: mainWindow.Window()},
		feeder.Callbacks{
			OnStarted: func(mode model.Mode) {
				slog.Info("feeding started", "mode", mode)
			},
			OnCompleted: func(draft model.SessionDraft) {
				saveCtx, saveCancel := context.WithTimeout(context.Background(), saveTimeout)
				defer saveCancel()
				if err := feeds.Save(saveCtx, draft); err != nil {
					slog.Error("failed to save feed", "id", draft.ID, "error", err)
					return
				}
				slog.Info("feed saved", "id", draft.ID, "label", draft.Label, "duration", draft.Duration)
				fyne.Do(reloadHistory)
			},
			OnEnded: func(model.Mode) {
				fyne.Do(refreshStatus)
			},
		},
		feeder.Options{
			Dispatch:   fyne.Do,
			Labeler:    feeder.NewLabeler(settings.LabelTemplate),
			VolumeStep: settings.VolumeStep,
		},
	)

	applySettings := func(updated preferences.Settings) {
		settings = updated
		chain.Update(updated)
	}
	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		applySettings(updated)
		if err := storage.SaveSettings(appName, updated); err != nil {
			slog.Error("failed to save settings", "error", err)
			dialog.ShowError(err, mainWindow.Window())
		}
	})
	if settingsPath, err := storage.SettingsPath(appName); err == nil {
		if err := storage.WatchSettings(ctx, settingsPath, func(updated preferences.Settings) {
			fyne.Do(func() {
				applySettings(updated)
				prefsWindow.UpdateSettings(updated)
			})
		}); err != nil {
			slog.Warn("settings will not reload automatically", "error", err)
		}
	}

	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager = tray.New(desktopApp, tray.Callbacks{
			OnStartBreast: func() { open(model.ModeBreast) },
			OnStartBottle: func() { open(model.ModeBottle) },
			OnShow:        mainWindow.Show,
			OnPreferences: prefsWindow.Show,
			OnQuit: func() {
				controller.HandleUnload()
				fyneApp.Quit()
			},
		})
	} else {
		slog.Info("system tray unsupported on this platform")
	}

	fyneApp.Lifecycle().SetOnStopped(func() {
		controller.HandleUnload()
		cancel()
	})

	go func() {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fyne.Do(refreshStatus)
			}
		}
	}()

	reloadHistory()
	mainWindow.Show()
	fyneApp.Run()
	return nil
}

// newPreferenceStore keeps learned values in dir, mirrored in memory so a
// broken file degrades to session-only learning.
func newPreferenceStore(dir string) kv.Store {
	return kv.NewFallback(kv.NewFile(storage.PreferencesPath(dir)), kv.NewMemory())
}
