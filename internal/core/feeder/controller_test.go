package feeder

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"feedfloat/internal/core/bottle"
	"feedfloat/internal/core/clock"
	"feedfloat/internal/core/model"
	"feedfloat/internal/storage/kv"

	"pgregory.net/rapid"
)

type fakeSurface struct {
	mu        sync.Mutex
	kind      string
	fallback  bool
	focused   int
	closed    int
	onDismiss func()
}

func (surface *fakeSurface) Kind() string   { return surface.kind }
func (surface *fakeSurface) Fallback() bool { return surface.fallback }

func (surface *fakeSurface) Focus() {
	surface.mu.Lock()
	surface.focused++
	surface.mu.Unlock()
}

func (surface *fakeSurface) Close() {
	surface.mu.Lock()
	surface.closed++
	surface.mu.Unlock()
}

func (surface *fakeSurface) SetOnDismiss(handler func()) {
	surface.mu.Lock()
	surface.onDismiss = handler
	surface.mu.Unlock()
}

// Dismiss simulates the user closing the window. The hook is read without
// clearing it so repeated dismissals exercise the controller's own guard.
func (surface *fakeSurface) Dismiss() {
	surface.mu.Lock()
	handler := surface.onDismiss
	surface.mu.Unlock()
	if handler != nil {
		handler()
	}
}

type fakeView struct {
	mu        sync.Mutex
	elapsed   string
	status    string
	running   bool
	side      model.Side
	volume    float64
	milk      model.MilkType
	handlers  Handlers
	elapsedCh chan string
}

func newFakeView() *fakeView {
	return &fakeView{elapsedCh: make(chan string, 64)}
}

func (view *fakeView) SetElapsed(text string) {
	view.mu.Lock()
	view.elapsed = text
	view.mu.Unlock()
	select {
	case view.elapsedCh <- text:
	default:
	}
}

func (view *fakeView) SetStatus(text string) {
	view.mu.Lock()
	view.status = text
	view.mu.Unlock()
}

func (view *fakeView) SetRunning(running bool) {
	view.mu.Lock()
	view.running = running
	view.mu.Unlock()
}

func (view *fakeView) SetSide(side model.Side) {
	view.mu.Lock()
	view.side = side
	view.mu.Unlock()
}

func (view *fakeView) SetVolume(volume float64) {
	view.mu.Lock()
	view.volume = volume
	view.mu.Unlock()
}

func (view *fakeView) SetMilkType(milk model.MilkType) {
	view.mu.Lock()
	view.milk = milk
	view.mu.Unlock()
}

func (view *fakeView) Bind(handlers Handlers) {
	view.mu.Lock()
	view.handlers = handlers
	view.mu.Unlock()
}

func (view *fakeView) Status() string {
	view.mu.Lock()
	defer view.mu.Unlock()
	return view.status
}

type fakeRenderer struct {
	view *fakeView
	err  error
}

func (renderer *fakeRenderer) Render(Surface, model.Mode) (View, error) {
	if renderer.err != nil {
		return nil, renderer.err
	}
	return renderer.view, nil
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (ticker *fakeTicker) C() <-chan time.Time { return ticker.ch }

func (ticker *fakeTicker) Stop() {
	ticker.mu.Lock()
	ticker.stopped = true
	ticker.mu.Unlock()
}

type recordingAlerter struct {
	errs []error
}

func (alerter *recordingAlerter) Alert(err error) {
	alerter.errs = append(alerter.errs, err)
}

type recorder struct {
	mu        sync.Mutex
	started   []model.Mode
	completed []model.SessionDraft
	ended     []model.Mode
}

func (rec *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStarted: func(mode model.Mode) {
			rec.mu.Lock()
			rec.started = append(rec.started, mode)
			rec.mu.Unlock()
		},
		OnCompleted: func(draft model.SessionDraft) {
			rec.mu.Lock()
			rec.completed = append(rec.completed, draft)
			rec.mu.Unlock()
		},
		OnEnded: func(mode model.Mode) {
			rec.mu.Lock()
			rec.ended = append(rec.ended, mode)
			rec.mu.Unlock()
		},
	}
}

func (rec *recorder) counts() (int, int, int) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.started), len(rec.completed), len(rec.ended)
}

type harness struct {
	controller *Controller
	clock      *clock.Manual
	surface    *fakeSurface
	view       *fakeView
	recorder   *recorder
	alerter    *recordingAlerter
	learner    *bottle.Learner
	store      *kv.Memory
	tickers    chan *fakeTicker
}

func newHarness(t *testing.T, provisionErr error) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewManual(time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)),
		surface:  &fakeSurface{kind: "popup"},
		view:     newFakeView(),
		recorder: &recorder{},
		alerter:  &recordingAlerter{},
		store:    kv.NewMemory(),
		tickers:  make(chan *fakeTicker, 32),
	}
	h.learner = bottle.NewLearner(h.store)
	provisioner := ProvisionerFunc(func(context.Context) (Surface, error) {
		if provisionErr != nil {
			return nil, provisionErr
		}
		return h.surface, nil
	})
	h.controller = New(provisioner, &fakeRenderer{view: h.view}, h.learner, h.alerter, h.recorder.callbacks(), Options{
		Clock: h.clock,
		NewTicker: func(time.Duration) Ticker {
			ticker := &fakeTicker{ch: make(chan time.Time)}
			h.tickers <- ticker
			return ticker
		},
		NewID: func() string { return "draft-1" },
	})
	return h
}

func boolPtr(value bool) *bool             { return &value }
func floatPtr(value float64) *float64      { return &value }
func sidePtr(value model.Side) *model.Side { return &value }

func TestOpenAndStopBreastSession(t *testing.T) {
	h := newHarness(t, nil)

	if !h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{}) {
		t.Fatal("Open returned false")
	}
	if !h.controller.HasActiveSession() {
		t.Fatal("expected an active session")
	}
	snapshot := h.controller.Snapshot()
	if !snapshot.Running || snapshot.Side != model.SideLeft || snapshot.SurfaceKind != "popup" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if h.view.Status() != statusRunning {
		t.Errorf("status = %q, want %q", h.view.Status(), statusRunning)
	}

	h.clock.Advance(90 * time.Second)
	h.controller.Stop()

	started, completed, ended := h.recorder.counts()
	if started != 1 || completed != 1 || ended != 1 {
		t.Fatalf("callbacks started=%d completed=%d ended=%d, want 1/1/1", started, completed, ended)
	}
	draft := h.recorder.completed[0]
	if draft.ID != "draft-1" || draft.Mode != model.ModeBreast {
		t.Errorf("unexpected draft identity %+v", draft)
	}
	if draft.Duration != 90*time.Second {
		t.Errorf("duration = %v, want 90s", draft.Duration)
	}
	if draft.Side == nil || *draft.Side != model.SideLeft {
		t.Errorf("side = %v, want left", draft.Side)
	}
	if draft.VolumeMl != nil || draft.MilkType != nil {
		t.Error("breast drafts must not carry bottle fields")
	}
	if draft.Label != "Breastfeeding (left)" {
		t.Errorf("label = %q", draft.Label)
	}
	if h.surface.closed != 1 {
		t.Errorf("surface closed %d times, want 1", h.surface.closed)
	}
	if h.controller.HasActiveSession() {
		t.Error("controller should be idle after stop")
	}
}

func TestElapsedEqualsSumOfRunningIntervals(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, nil)
		if !h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{}) {
			rt.Fatal("Open returned false")
		}

		var expected time.Duration
		running := true
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			delta := time.Duration(rapid.Int64Range(0, 3_600_000).Draw(rt, "delta_ms")) * time.Millisecond
			h.clock.Advance(delta)
			if running {
				expected += delta
			}
			if rapid.Bool().Draw(rt, "toggle") {
				h.controller.Toggle()
				running = !running
			}
			if got := h.controller.Snapshot().Elapsed; got != expected {
				rt.Fatalf("elapsed = %v, want %v", got, expected)
			}
		}
		h.controller.Stop()
	})
}

func TestSecondOpenFocusesExistingSession(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{Side: sidePtr(model.SideRight)})
	h.clock.Advance(30 * time.Second)
	before := h.controller.Snapshot()

	if !h.controller.Open(context.Background(), model.ModeBottle, model.OpenContext{}) {
		t.Fatal("second Open should report true")
	}
	after := h.controller.Snapshot()
	if !after.Start.Equal(before.Start) || after.Elapsed != before.Elapsed || after.Mode != model.ModeBreast {
		t.Fatalf("second open changed the session: before %+v after %+v", before, after)
	}
	if after.Side != model.SideRight {
		t.Errorf("side = %q, want right", after.Side)
	}
	if h.surface.focused != 1 {
		t.Errorf("focused %d times, want 1", h.surface.focused)
	}
	if started, _, _ := h.recorder.counts(); started != 1 {
		t.Errorf("started fired %d times, want 1", started)
	}
}

func TestEveryTerminationPathCompletesOnce(t *testing.T) {
	paths := map[string]func(h *harness){
		"stop":      func(h *harness) { h.controller.Stop() },
		"dismissed": func(h *harness) { h.surface.Dismiss() },
		"unload":    func(h *harness) { h.controller.HandleUnload() },
		"stop button": func(h *harness) {
			h.view.handlers.OnStop()
		},
	}
	for name, terminate := range paths {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.controller.Open(context.Background(), model.ModeBottle, model.OpenContext{})
			h.clock.Advance(time.Minute)

			terminate(h)
			h.surface.Dismiss()
			h.controller.Stop()
			h.controller.HandleUnload()

			started, completed, ended := h.recorder.counts()
			if started != 1 || completed != 1 || ended != 1 {
				t.Fatalf("callbacks started=%d completed=%d ended=%d, want 1/1/1", started, completed, ended)
			}
		})
	}
}

func TestReentrantStopFromCompletionCallback(t *testing.T) {
	h := newHarness(t, nil)
	completions := 0
	h.controller.callbacks.OnCompleted = func(model.SessionDraft) {
		completions++
		h.controller.Stop()
		h.surface.Dismiss()
	}
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})
	h.controller.Stop()
	if completions != 1 {
		t.Fatalf("completed %d times, want 1", completions)
	}
}

func TestAlternateSideCycles(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})

	want := []model.Side{model.SideRight, model.SideBoth, model.SideLeft, model.SideRight}
	for _, expected := range want {
		h.controller.AlternateSide()
		if got := h.controller.Snapshot().Side; got != expected {
			t.Fatalf("side = %q, want %q", got, expected)
		}
		if h.view.side != expected {
			t.Fatalf("view side = %q, want %q", h.view.side, expected)
		}
	}

	h.controller.SelectSide(model.Side("middle"))
	if got := h.controller.Snapshot().Side; got != model.SideRight {
		t.Errorf("unknown side changed selection to %q", got)
	}
}

func TestInvalidSideDefaultsToLeft(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{Side: sidePtr("top")})
	if got := h.controller.Snapshot().Side; got != model.SideLeft {
		t.Fatalf("side = %q, want left", got)
	}
}

func TestBottleVolumeDefaultsAndSteps(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBottle, model.OpenContext{Amount: floatPtr(math.NaN())})
	if got := h.controller.Snapshot().VolumeMl; got != bottle.InitialDefaultMl {
		t.Fatalf("volume = %v, want learner default", got)
	}

	h.controller.SetVolume(15)
	h.controller.DecreaseVolume()
	h.controller.DecreaseVolume()
	if got := h.controller.Snapshot().VolumeMl; got != 0 {
		t.Fatalf("volume = %v, want floored at 0", got)
	}
	h.controller.IncreaseVolume()
	h.controller.SetVolume(-3)
	h.controller.SetVolume(math.Inf(1))
	if got := h.controller.Snapshot().VolumeMl; got != 10 {
		t.Fatalf("volume = %v, want 10", got)
	}
	if h.view.volume != 10 {
		t.Errorf("view volume = %v, want 10", h.view.volume)
	}

	h.controller.AlternateSide()
	if got := h.controller.Snapshot().Side; got != model.SideLeft {
		t.Errorf("side changed in bottle mode: %q", got)
	}
}

func TestBottleStopFeedsLearner(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 2; i++ {
		h.controller.Open(context.Background(), model.ModeBottle, model.OpenContext{Amount: floatPtr(120)})
		h.controller.SetMilkType(model.MilkFormula)
		h.controller.Stop()
	}
	if got := h.learner.Default(); got != 120 {
		t.Fatalf("learned default = %v, want 120", got)
	}
	draft := h.recorder.completed[1]
	if draft.VolumeMl == nil || *draft.VolumeMl != 120 || draft.MilkType == nil || *draft.MilkType != model.MilkFormula {
		t.Fatalf("unexpected bottle draft %+v", draft)
	}
	if draft.Side != nil {
		t.Error("bottle drafts must not carry a side")
	}
	if draft.Label != "Bottle 120 ml (formula)" {
		t.Errorf("label = %q", draft.Label)
	}

	h.controller.Open(context.Background(), model.ModeBottle, model.OpenContext{})
	if got := h.controller.Snapshot().VolumeMl; got != 120 {
		t.Errorf("new bottle session volume = %v, want learned 120", got)
	}
}

func TestZeroVolumeBottleLeavesPreferencesAlone(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBottle, model.OpenContext{Amount: floatPtr(0)})
	h.controller.Stop()

	if _, ok, _ := h.store.Get("bottle.observations"); ok {
		t.Error("observation table was written for a zero-volume bottle")
	}
	if _, ok, _ := h.store.Get("bottle.default_ml"); ok {
		t.Error("default was written for a zero-volume bottle")
	}
}

func TestProvisioningFailureRollsBack(t *testing.T) {
	h := newHarness(t, errors.New("no backend"))
	if h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{}) {
		t.Fatal("Open should fail")
	}
	if len(h.alerter.errs) != 1 {
		t.Fatalf("alerts = %d, want 1", len(h.alerter.errs))
	}
	if h.controller.HasActiveSession() || h.controller.Snapshot().State != StateIdle {
		t.Fatal("controller should be idle after failure")
	}
	if started, completed, ended := h.recorder.counts(); started+completed+ended != 0 {
		t.Fatal("no notifications expected after a failed open")
	}
}

func TestRenderFailureClosesSurface(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.renderer = &fakeRenderer{err: errors.New("broken document")}
	if h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{}) {
		t.Fatal("Open should fail")
	}
	if h.surface.closed != 1 {
		t.Errorf("surface closed %d times, want 1", h.surface.closed)
	}
}

func TestUnsupportedModeIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	if h.controller.Open(context.Background(), model.Mode("pump"), model.OpenContext{}) {
		t.Fatal("Open should reject unknown modes")
	}
	if len(h.alerter.errs) != 0 {
		t.Error("unsupported modes are logged, not alerted")
	}
}

func TestManualStartSession(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{AutoStart: boolPtr(false)})
	if h.controller.Snapshot().Running {
		t.Fatal("timer should wait for an explicit start")
	}
	if h.view.Status() != statusReady {
		t.Errorf("status = %q, want %q", h.view.Status(), statusReady)
	}
	if started, _, _ := h.recorder.counts(); started != 1 {
		t.Fatal("started must fire even before the timer runs")
	}

	h.clock.Advance(time.Hour)
	h.controller.Stop()
	draft := h.recorder.completed[0]
	if draft.Duration != 0 {
		t.Errorf("duration = %v, want 0 for a never-started timer", draft.Duration)
	}

	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})
	if !h.controller.Snapshot().Running {
		t.Error("autoStart should reset to true for the next session")
	}
}

func TestStopUsesWallClockSafeguard(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})
	h.clock.Advance(time.Minute)
	h.controller.Pause()
	h.clock.Advance(4 * time.Minute)
	h.controller.Stop()

	if got := h.recorder.completed[0].Duration; got != 5*time.Minute {
		t.Fatalf("duration = %v, want 5m", got)
	}
}

func TestTickRedisplaysElapsed(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})
	ticker := <-h.tickers
	for len(h.view.elapsedCh) > 0 {
		<-h.view.elapsedCh
	}

	h.clock.Advance(75 * time.Second)
	ticker.ch <- h.clock.Now()

	select {
	case text := <-h.view.elapsedCh:
		if text != "01:15" {
			t.Fatalf("elapsed text = %q, want 01:15", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not refresh the view")
	}

	h.controller.Pause()
	deadline := time.Now().Add(2 * time.Second)
	for {
		ticker.mu.Lock()
		stopped := ticker.stopped
		ticker.mu.Unlock()
		if stopped {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pause did not stop the redisplay ticker")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUnloadWhileOpeningAbandonsSession(t *testing.T) {
	h := newHarness(t, nil)
	release := make(chan struct{})
	h.controller.provisioner = ProvisionerFunc(func(context.Context) (Surface, error) {
		<-release
		return h.surface, nil
	})

	result := make(chan bool)
	go func() {
		result <- h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})
	}()
	for !h.controller.HasActiveSession() {
		time.Sleep(time.Millisecond)
	}
	h.controller.HandleUnload()
	close(release)

	if <-result {
		t.Fatal("Open should report false when unloaded mid-provisioning")
	}
	if h.surface.closed != 1 {
		t.Errorf("surface closed %d times, want 1", h.surface.closed)
	}
	if started, completed, ended := h.recorder.counts(); started+completed+ended != 0 {
		t.Fatal("abandoned sessions emit nothing")
	}
}

func TestLabelTemplate(t *testing.T) {
	labeler := NewLabeler("{{#is_bottle}}{{volume}}ml {{milk}}{{/is_bottle}}{{#is_breast}}{{side}} {{duration}}{{/is_breast}}")
	side := model.SideBoth
	got := labeler.Label(model.SessionDraft{Mode: model.ModeBreast, Side: &side, Duration: 65 * time.Second})
	if got != "both 01:05" {
		t.Errorf("label = %q, want %q", got, "both 01:05")
	}

	broken := NewLabeler("{{#unclosed}}")
	if got := broken.Label(model.SessionDraft{Mode: model.ModeBreast, Side: &side}); got != "Breastfeeding (both)" {
		t.Errorf("fallback label = %q", got)
	}
}

func TestToggleResumeAndClearDraft(t *testing.T) {
	h := newHarness(t, nil)
	h.controller.Open(context.Background(), model.ModeBreast, model.OpenContext{})

	h.clock.Advance(10 * time.Second)
	h.controller.Toggle()
	if h.controller.Snapshot().Running {
		t.Fatal("toggle should pause a running timer")
	}
	h.clock.Advance(time.Minute)
	h.controller.Resume()
	h.clock.Advance(5 * time.Second)
	h.controller.ClearDraft()

	snapshot := h.controller.Snapshot()
	if !snapshot.Running || snapshot.Elapsed != 15*time.Second {
		t.Fatalf("snapshot = %+v, want running with 15s", snapshot)
	}
	if !h.controller.HasActiveSession() {
		t.Fatal("ClearDraft must not end the session")
	}
	h.controller.Toggle()
	if h.controller.Snapshot().Running || h.view.Status() != statusPaused {
		t.Errorf("second toggle should pause, status %q", h.view.Status())
	}
}

// instantDismissSurface is closed by the user the moment it accepts a
// dismissal handler.
type instantDismissSurface struct {
	fakeSurface
}

func (surface *instantDismissSurface) SetOnDismiss(handler func()) {
	surface.fakeSurface.SetOnDismiss(handler)
	if handler != nil {
		handler()
	}
}

func TestStartedPrecedesEndedWhenDismissedImmediately(t *testing.T) {
	opened := &instantDismissSurface{fakeSurface: fakeSurface{kind: "popup"}}
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(event string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}
	controller := New(
		ProvisionerFunc(func(context.Context) (Surface, error) { return opened, nil }),
		&fakeRenderer{view: newFakeView()},
		nil,
		nil,
		Callbacks{
			OnStarted:   func(model.Mode) { record("started") },
			OnCompleted: func(model.SessionDraft) { record("completed") },
			OnEnded:     func(model.Mode) { record("ended") },
		},
		Options{
			Clock: clock.NewManual(time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)),
			NewTicker: func(time.Duration) Ticker {
				return &fakeTicker{ch: make(chan time.Time)}
			},
		},
	)

	if !controller.Open(context.Background(), model.ModeBreast, model.OpenContext{}) {
		t.Fatal("Open should succeed")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 || events[0] != "started" || events[1] != "completed" || events[2] != "ended" {
		t.Fatalf("events = %v, want [started completed ended]", events)
	}
	if controller.HasActiveSession() {
		t.Error("dismissed session should leave the controller idle")
	}
}
