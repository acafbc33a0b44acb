package feeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"feedfloat/internal/core/bottle"
	"feedfloat/internal/core/clock"
	"feedfloat/internal/core/model"
	"feedfloat/internal/core/timefmt"

	"github.com/google/uuid"
)

// ErrUnsupportedMode is returned for feeding modes other than breast and bottle.
var ErrUnsupportedMode = errors.New("unsupported feeding mode")

const (
	// DefaultTickInterval is the redisplay cadence while the timer runs.
	DefaultTickInterval = 500 * time.Millisecond
	// DefaultVolumeStep is the bottle adjustment applied by the -/+ controls.
	DefaultVolumeStep = 10.0

	statusReady   = "Ready"
	statusRunning = "Running"
	statusPaused  = "Paused"
)

// Options configures a Controller. Zero values get defaults.
type Options struct {
	Clock        clock.Clock
	TickInterval time.Duration
	NewTicker    func(interval time.Duration) Ticker
	// Dispatch runs view updates on the UI thread.
	Dispatch   func(func())
	NewID      func() string
	Labeler    *Labeler
	VolumeStep float64
}

type session struct {
	mode       model.Mode
	side       model.Side
	volumeMl   float64
	milkType   model.MilkType
	start      time.Time
	base       time.Duration
	lastResume time.Time
	running    bool
}

func (current *session) elapsed(now time.Time) time.Duration {
	total := current.base
	if current.running {
		if delta := now.Sub(current.lastResume); delta > 0 {
			total += delta
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// Controller runs one floating feeding session at a time.
type Controller struct {
	mu          sync.Mutex
	provisioner Provisioner
	renderer    Renderer
	learner     *bottle.Learner
	alerter     Alerter
	callbacks   Callbacks
	options     Options

	state      State
	generation uint64
	session    *session
	autoStart  bool
	surface    Surface
	view       View
	started    bool
	tickCancel context.CancelFunc
}

// New creates a Controller.
func New(provisioner Provisioner, renderer Renderer, learner *bottle.Learner, alerter Alerter, callbacks Callbacks, options Options) *Controller {
	if options.Clock == nil {
		options.Clock = clock.System{}
	}
	if options.TickInterval <= 0 {
		options.TickInterval = DefaultTickInterval
	}
	if options.NewTicker == nil {
		options.NewTicker = newSystemTicker
	}
	if options.Dispatch == nil {
		options.Dispatch = func(fn func()) { fn() }
	}
	if options.NewID == nil {
		options.NewID = newDraftID
	}
	if options.VolumeStep <= 0 {
		options.VolumeStep = DefaultVolumeStep
	}
	if learner == nil {
		learner = bottle.NewLearner(nil)
	}
	return &Controller{
		provisioner: provisioner,
		renderer:    renderer,
		learner:     learner,
		alerter:     alerter,
		callbacks:   callbacks,
		options:     options,
		state:       StateIdle,
		autoStart:   true,
	}
}

// Open starts a session in a floating surface. When a session is already
// open its surface is brought to the front instead and Open reports true.
// OnStarted is delivered before the surface can report a dismissal, so
// OnEnded always follows it.
func (controller *Controller) Open(ctx context.Context, mode model.Mode, openCtx model.OpenContext) bool {
	if !mode.Valid() {
		slog.Warn("refusing to open floating session", "mode", mode, "error", ErrUnsupportedMode)
		return false
	}

	controller.mu.Lock()
	switch controller.state {
	case StateActive, StateOpening:
		surface := controller.surface
		controller.mu.Unlock()
		if surface != nil {
			surface.Focus()
		}
		return true
	case StateClosing:
		controller.mu.Unlock()
		slog.Debug("open ignored while previous session is closing", "mode", mode)
		return false
	}

	fallbackVolume := 0.0
	if mode == model.ModeBottle {
		fallbackVolume = controller.learner.Default()
	}
	controller.session = &session{
		mode:     mode,
		side:     openCtx.ResolvedSide(),
		volumeMl: openCtx.ResolvedAmount(fallbackVolume),
		milkType: openCtx.ResolvedMilkType(),
	}
	controller.autoStart = openCtx.ResolvedAutoStart()
	controller.state = StateOpening
	controller.generation++
	generation := controller.generation
	controller.mu.Unlock()

	surface, view, err := controller.provision(ctx, mode)
	if err != nil {
		controller.rollback(generation)
		slog.Error("floating session unavailable", "mode", mode, "error", err)
		if controller.alerter != nil {
			controller.alerter.Alert(fmt.Errorf("unable to open the floating timer: %w", err))
		}
		return false
	}

	view.Bind(controller.handlers())

	controller.mu.Lock()
	if controller.generation != generation || controller.state != StateOpening {
		controller.mu.Unlock()
		surface.Close()
		return false
	}
	controller.surface = surface
	controller.view = view
	controller.started = true
	controller.state = StateActive
	current := *controller.session
	autoStart := controller.autoStart
	controller.mu.Unlock()

	controller.options.Dispatch(func() {
		view.SetSide(current.side)
		view.SetVolume(current.volumeMl)
		view.SetMilkType(current.milkType)
		view.SetElapsed(timefmt.FormatDuration(0))
		view.SetRunning(false)
		view.SetStatus(statusReady)
	})

	slog.Info("floating session opened", "mode", mode, "surface", surface.Kind(), "auto_start", autoStart)
	if controller.callbacks.OnStarted != nil {
		controller.callbacks.OnStarted(mode)
	}
	surface.SetOnDismiss(func() {
		controller.dismissed(generation)
	})
	if autoStart {
		controller.Start()
	}
	return true
}

// HasActiveSession reports whether a session is open or opening.
func (controller *Controller) HasActiveSession() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.state == StateOpening || controller.state == StateActive
}

// ClearDraft is kept for hosts that still call it; sessions own no draft state.
func (controller *Controller) ClearDraft() {}

// Snapshot returns the current session state.
func (controller *Controller) Snapshot() Snapshot {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	snapshot := Snapshot{State: controller.state}
	if controller.session == nil {
		return snapshot
	}
	current := controller.session
	snapshot.Mode = current.mode
	snapshot.Side = current.side
	snapshot.VolumeMl = current.volumeMl
	snapshot.MilkType = current.milkType
	snapshot.Running = current.running
	snapshot.Elapsed = current.elapsed(controller.options.Clock.Now())
	snapshot.Start = current.start
	if controller.surface != nil {
		snapshot.SurfaceKind = controller.surface.Kind()
	}
	return snapshot
}

// Toggle pauses a running timer or starts a paused one.
func (controller *Controller) Toggle() {
	controller.mu.Lock()
	if controller.state != StateActive || controller.session == nil {
		controller.mu.Unlock()
		return
	}
	running := controller.session.running
	controller.mu.Unlock()

	if running {
		controller.Pause()
		return
	}
	controller.Start()
}

// Start starts or resumes the timer.
func (controller *Controller) Start() {
	controller.mu.Lock()
	if controller.state != StateActive || controller.session == nil || controller.session.running {
		controller.mu.Unlock()
		return
	}
	now := controller.options.Clock.Now()
	current := controller.session
	if current.start.IsZero() {
		current.start = now
	}
	current.lastResume = now
	current.running = true
	text := timefmt.FormatDuration(current.elapsed(now))
	controller.startTickerLocked()
	view := controller.view
	controller.mu.Unlock()

	controller.updateView(view, func(view View) {
		view.SetRunning(true)
		view.SetStatus(statusRunning)
		view.SetElapsed(text)
	})
}

// Resume is Start for a paused timer.
func (controller *Controller) Resume() {
	controller.Start()
}

// Pause freezes the timer.
func (controller *Controller) Pause() {
	controller.mu.Lock()
	if controller.state != StateActive || controller.session == nil || !controller.session.running {
		controller.mu.Unlock()
		return
	}
	now := controller.options.Clock.Now()
	controller.pauseLocked(now)
	text := timefmt.FormatDuration(controller.session.elapsed(now))
	view := controller.view
	controller.mu.Unlock()

	controller.updateView(view, func(view View) {
		view.SetRunning(false)
		view.SetStatus(statusPaused)
		view.SetElapsed(text)
	})
}

// SelectSide sets the breast side.
func (controller *Controller) SelectSide(side model.Side) {
	if !side.Valid() {
		return
	}
	controller.updateSession(model.ModeBreast, func(current *session, view View) func() {
		current.side = side
		return func() { view.SetSide(side) }
	})
}

// AlternateSide advances left, right, both and back to left.
func (controller *Controller) AlternateSide() {
	controller.updateSession(model.ModeBreast, func(current *session, view View) func() {
		current.side = current.side.Next()
		side := current.side
		return func() { view.SetSide(side) }
	})
}

// StepVolume adjusts the bottle volume by delta, never going below zero.
func (controller *Controller) StepVolume(delta float64) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}
	controller.updateSession(model.ModeBottle, func(current *session, view View) func() {
		current.volumeMl = math.Max(0, current.volumeMl+delta)
		volume := current.volumeMl
		return func() { view.SetVolume(volume) }
	})
}

// IncreaseVolume adds one step to the bottle volume.
func (controller *Controller) IncreaseVolume() {
	controller.StepVolume(controller.options.VolumeStep)
}

// DecreaseVolume removes one step from the bottle volume.
func (controller *Controller) DecreaseVolume() {
	controller.StepVolume(-controller.options.VolumeStep)
}

// SetVolume sets the bottle volume. Negative or non-finite values are ignored.
func (controller *Controller) SetVolume(volume float64) {
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return
	}
	controller.updateSession(model.ModeBottle, func(current *session, view View) func() {
		current.volumeMl = volume
		return func() { view.SetVolume(volume) }
	})
}

// SetMilkType sets the bottle contents.
func (controller *Controller) SetMilkType(milk model.MilkType) {
	if !milk.Valid() {
		return
	}
	controller.updateSession(model.ModeBottle, func(current *session, view View) func() {
		current.milkType = milk
		return func() { view.SetMilkType(milk) }
	})
}

// Stop finalizes the session and closes its surface.
func (controller *Controller) Stop() {
	controller.finish("stop")
}

// HandleUnload is called when the host window goes away. An open session is
// finalized as if stopped; one still being provisioned is abandoned.
func (controller *Controller) HandleUnload() {
	controller.mu.Lock()
	if controller.state == StateOpening {
		controller.resetLocked()
		controller.generation++
		controller.mu.Unlock()
		return
	}
	controller.mu.Unlock()
	controller.finish("unload")
}

func (controller *Controller) dismissed(generation uint64) {
	controller.mu.Lock()
	current := controller.generation
	controller.mu.Unlock()
	if current != generation {
		return
	}
	controller.finish("dismissed")
}

func (controller *Controller) provision(ctx context.Context, mode model.Mode) (Surface, View, error) {
	if controller.provisioner == nil {
		return nil, nil, errors.New("no surface provisioner")
	}
	surface, err := controller.provisioner.Request(ctx)
	if err != nil {
		return nil, nil, err
	}
	if surface == nil {
		return nil, nil, errors.New("provisioner returned no surface")
	}
	view, err := controller.renderer.Render(surface, mode)
	if err != nil {
		surface.Close()
		return nil, nil, fmt.Errorf("render surface: %w", err)
	}
	return surface, view, nil
}

func (controller *Controller) rollback(generation uint64) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.generation != generation {
		return
	}
	controller.resetLocked()
}

func (controller *Controller) finish(reason string) {
	controller.mu.Lock()
	if controller.state != StateActive || controller.session == nil {
		controller.mu.Unlock()
		return
	}
	controller.state = StateClosing
	now := controller.options.Clock.Now()
	if controller.session.running {
		controller.pauseLocked(now)
	}
	draft := controller.buildDraftLocked(now)
	current := *controller.session
	surface := controller.surface
	started := controller.started
	controller.stopTickerLocked()
	controller.session = nil
	controller.surface = nil
	controller.view = nil
	controller.started = false
	controller.mu.Unlock()

	if current.mode == model.ModeBottle && current.volumeMl > 0 {
		controller.learner.Record(current.volumeMl)
	}
	slog.Info("floating session finished", "mode", current.mode, "reason", reason, "duration", draft.Duration)
	if controller.callbacks.OnCompleted != nil {
		controller.callbacks.OnCompleted(draft)
	}

	if surface != nil {
		surface.SetOnDismiss(nil)
		surface.Close()
	}

	controller.mu.Lock()
	controller.resetLocked()
	controller.mu.Unlock()

	if started && controller.callbacks.OnEnded != nil {
		controller.callbacks.OnEnded(current.mode)
	}
}

func (controller *Controller) buildDraftLocked(now time.Time) model.SessionDraft {
	current := controller.session
	duration := current.elapsed(now)
	start := current.start
	if start.IsZero() {
		start = now
	} else if wall := now.Sub(start); wall > duration {
		duration = wall
	}

	draft := model.SessionDraft{
		ID:        controller.options.NewID(),
		Mode:      current.mode,
		Start:     start,
		End:       now,
		Duration:  duration,
		CreatedAt: now,
	}
	switch current.mode {
	case model.ModeBreast:
		side := current.side
		draft.Side = &side
	case model.ModeBottle:
		volume := current.volumeMl
		milk := current.milkType
		draft.VolumeMl = &volume
		draft.MilkType = &milk
	}
	draft.Label = controller.options.Labeler.Label(draft)
	return draft
}

func (controller *Controller) pauseLocked(now time.Time) {
	current := controller.session
	current.base = current.elapsed(now)
	current.lastResume = time.Time{}
	current.running = false
	controller.stopTickerLocked()
}

func (controller *Controller) startTickerLocked() {
	controller.stopTickerLocked()
	ctx, cancel := context.WithCancel(context.Background())
	controller.tickCancel = cancel
	ticker := controller.options.NewTicker(controller.options.TickInterval)
	go controller.runTicker(ctx, ticker)
}

func (controller *Controller) stopTickerLocked() {
	if controller.tickCancel != nil {
		controller.tickCancel()
		controller.tickCancel = nil
	}
}

func (controller *Controller) runTicker(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			controller.redisplay(ctx)
		}
	}
}

func (controller *Controller) redisplay(ctx context.Context) {
	controller.mu.Lock()
	if ctx.Err() != nil || controller.session == nil || controller.view == nil {
		controller.mu.Unlock()
		return
	}
	text := timefmt.FormatDuration(controller.session.elapsed(controller.options.Clock.Now()))
	view := controller.view
	controller.mu.Unlock()

	controller.options.Dispatch(func() {
		view.SetElapsed(text)
	})
}

func (controller *Controller) updateSession(mode model.Mode, mutate func(current *session, view View) func()) {
	controller.mu.Lock()
	if controller.state != StateActive || controller.session == nil || controller.session.mode != mode {
		controller.mu.Unlock()
		return
	}
	apply := mutate(controller.session, controller.view)
	view := controller.view
	controller.mu.Unlock()

	if view != nil && apply != nil {
		controller.options.Dispatch(apply)
	}
}

func (controller *Controller) updateView(view View, apply func(View)) {
	if view == nil {
		return
	}
	controller.options.Dispatch(func() {
		apply(view)
	})
}

func (controller *Controller) handlers() Handlers {
	return Handlers{
		OnToggle:        controller.Toggle,
		OnStop:          controller.Stop,
		OnSelectSide:    controller.SelectSide,
		OnAlternateSide: controller.AlternateSide,
		OnStepVolume:    controller.StepVolume,
		OnVolumeEntered: controller.SetVolume,
		OnMilkType:      controller.SetMilkType,
	}
}

func (controller *Controller) resetLocked() {
	controller.stopTickerLocked()
	controller.state = StateIdle
	controller.session = nil
	controller.surface = nil
	controller.view = nil
	controller.started = false
	controller.autoStart = true
}

func newDraftID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
